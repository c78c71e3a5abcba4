//go:build windows && amd64

package main

import (
	"github.com/apex/log"

	"github.com/k2io/wrench"
	"github.com/k2io/wrench/internal/config"
	"github.com/k2io/wrench/internal/dx"
	"github.com/k2io/wrench/internal/events"
	"github.com/k2io/wrench/internal/features"
	"github.com/k2io/wrench/internal/passthrough"
)

// installDisplay subscribes the enabled features and hooks Direct3D. The
// hooks stay installed for the life of the process.
func installDisplay(cfg *config.Config, l log.Interface) error {
	h := wrench.New(wrench.WithLogger(l))
	hub := events.NewHub()
	features.Register(cfg, hub, features.NewPlatform(h, l), l)
	if _, err := dx.Init(h, hub, l); err != nil {
		return err
	}

	x := passthrough.NewSystemXInput(cfg, l)
	l.Infof("XInput %s loaded=%t", x.Library().Path(), x.Library().Loaded())
	return nil
}
