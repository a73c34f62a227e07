package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nadzzz/jukebox/internal/broker"
	"github.com/nadzzz/jukebox/internal/config"
	"github.com/nadzzz/jukebox/internal/health"
	"github.com/nadzzz/jukebox/internal/transport"
	grpctransport "github.com/nadzzz/jukebox/internal/transport/grpc"
	httptransport "github.com/nadzzz/jukebox/internal/transport/http"
	mqtttransport "github.com/nadzzz/jukebox/internal/transport/mqtt"
	triggertransport "github.com/nadzzz/jukebox/internal/transport/trigger"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the jukebox daemon (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), fromContext(cmd))
		},
	}
}

// buildTransports returns the enabled inbound transports.
func buildTransports(cfg *config.Config) []transport.Transport {
	var transports []transport.Transport

	if t := cfg.Transports.Trigger; t.Enabled {
		transports = append(transports, triggertransport.New(triggertransport.Config{
			Port:        t.Port,
			ReadTimeout: t.ReadTimeout,
			RateLimit:   t.RateLimit,
			Burst:       t.Burst,
		}))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if m := cfg.Transports.MQTT; m.Enabled {
		brokerURL := m.Broker
		if m.Embedded.Enabled {
			brokerURL = broker.URL(m.Embedded.Listen)
		}
		transports = append(transports, mqtttransport.New(mqtttransport.Config{
			Broker:     brokerURL,
			ClientID:   m.ClientID,
			Username:   m.Username,
			Password:   m.Password,
			Topic:      m.Topic,
			ReplyTopic: m.ReplyTopic,
			QoS:        byte(m.QoS),
		}))
	}
	return transports
}

func runServe(parent context.Context, a *app) error {
	if a == nil {
		return errors.New("configuration not loaded")
	}
	cfg := a.cfg
	slog.Info("jukebox starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	transports := buildTransports(cfg)
	if len(transports) == 0 {
		return errors.New("no transports enabled; enable at least one in config")
	}

	// The embedded broker must be accepting connections before the MQTT
	// transport dials it.
	if emb := cfg.Transports.MQTT.Embedded; emb.Enabled {
		b, err := broker.New(broker.Config{
			Listen:         emb.Listen,
			AllowAnonymous: emb.AllowAnonymous,
			Username:       cfg.Transports.MQTT.Username,
			Password:       cfg.Transports.MQTT.Password,
		}, slog.Default())
		if err != nil {
			return fmt.Errorf("embedded broker: %w", err)
		}
		if err := b.Start(); err != nil {
			return err
		}
		defer func() {
			if err := b.Close(); err != nil {
				slog.Error("embedded broker close error", "error", err)
			}
		}()
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, func() map[string]any {
		return map[string]any{
			"players":        p.registry.Len(),
			"default_player": p.defaultID,
			"lms":            p.client.Addr(),
		}
	})
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, p.dispatcher.Handle); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("jukebox ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("jukebox stopped")
	return nil
}
