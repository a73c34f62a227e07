package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nadzzz/jukebox/internal/interpreter/rules"
	"github.com/nadzzz/jukebox/internal/message"
	grpctransport "github.com/nadzzz/jukebox/internal/transport/grpc"
)

func parseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <utterance...>",
		Short: "Show how an utterance resolves, without contacting LMS",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			reg, defaultID, err := loadRegistry(a.cfg)
			if err != nil {
				return err
			}
			req, err := rules.New(reg, defaultID).Interpret(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(a, req)
		},
	}
}

func playersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List the known players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			reg, defaultID, err := loadRegistry(a.cfg)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tID\t")
			for _, d := range reg.Devices() {
				marker := ""
				if d.ID == defaultID {
					marker = "default"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.ID, marker)
			}
			if !hasID(reg.Devices(), defaultID) {
				fmt.Fprintf(w, "-\t%s\tdefault\n", defaultID)
			}
			return w.Flush()
		},
	}
}

func hasID(devices []message.Device, id string) bool {
	for _, d := range devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

func sendCommand() *cobra.Command {
	var (
		command string
		remote  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <parameter...>",
		Short: "Run one request through the full pipeline",
		Long: "Run one request through the full pipeline against the configured LMS,\n" +
			"or against a running daemon's gRPC transport with --remote.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			env := &message.Envelope{
				Source:    "cli",
				Command:   command,
				Parameter: strings.Join(args, " "),
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var (
				res *message.Result
				err error
			)
			if remote != "" {
				res, err = sendRemote(ctx, remote, env)
			} else {
				res, err = sendLocal(ctx, a, env)
			}
			if res != nil {
				if perr := printJSON(a, res); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&command, "command", message.EnvelopeJukebox, "envelope command: jukebox, play, next or stop")
	cmd.Flags().StringVar(&remote, "remote", "", "gRPC address of a running daemon (host:port)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall request timeout")
	return cmd
}

func sendLocal(ctx context.Context, a *app, env *message.Envelope) (*message.Result, error) {
	p, err := buildPipeline(a.cfg)
	if err != nil {
		return nil, err
	}
	return p.dispatcher.Handle(ctx, env)
}

func sendRemote(ctx context.Context, addr string, env *message.Envelope) (*message.Result, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	defer conn.Close()
	return grpctransport.Dispatch(ctx, conn, env)
}

func printJSON(a *app, v any) error {
	if a == nil {
		return errors.New("configuration not loaded")
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
