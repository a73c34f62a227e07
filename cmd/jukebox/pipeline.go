package main

import (
	"fmt"
	"log/slog"

	"github.com/nadzzz/jukebox/internal/config"
	"github.com/nadzzz/jukebox/internal/dispatch"
	"github.com/nadzzz/jukebox/internal/interpreter/rules"
	"github.com/nadzzz/jukebox/internal/lms"
	"github.com/nadzzz/jukebox/internal/playback"
	"github.com/nadzzz/jukebox/internal/registry"
)

// pipeline is the request path shared by serve and send:
// registry -> interpreter -> dispatcher -> playback controller -> LMS client.
type pipeline struct {
	registry   *registry.Registry
	defaultID  string
	client     *lms.TCP
	controller *playback.Controller
	dispatcher *dispatch.Dispatcher
}

func loadRegistry(cfg *config.Config) (*registry.Registry, string, error) {
	reg, err := registry.Load(registry.Sources{
		CastbridgeXML: cfg.Players.CastbridgeXML,
		DevicesFile:   cfg.Players.DevicesFile,
		Inline:        cfg.Players.Devices,
	}, slog.Default())
	if err != nil {
		return nil, "", fmt.Errorf("loading players: %w", err)
	}
	return reg, reg.DefaultID(cfg.Players.DefaultName, cfg.Players.DefaultID), nil
}

func buildPipeline(cfg *config.Config) (*pipeline, error) {
	reg, defaultID, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	client := lms.NewTCP(cfg.LMS.Addr(), cfg.LMS.Timeout, slog.Default())
	controller := playback.New(client, playback.Config{
		PollInterval:   cfg.Playback.PollInterval,
		ClearAttempts:  cfg.Playback.ClearAttempts,
		ResultAttempts: cfg.Playback.ResultAttempts,
		WaitDeadline:   cfg.Playback.Deadline,
	}, playback.WithLogger(slog.Default()))

	interp := rules.New(reg, defaultID)
	slog.Info("pipeline ready",
		"interpreter", interp.Name(),
		"players", reg.Len(),
		"default_player", defaultID,
		"lms", client.Addr())

	return &pipeline{
		registry:   reg,
		defaultID:  defaultID,
		client:     client,
		controller: controller,
		dispatcher: dispatch.New(interp, controller, defaultID),
	}, nil
}
