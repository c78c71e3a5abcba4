// Package features holds the display fixes installed on top of the device
// event hub: the UI movie scale mode override and the backdrop aspect fix.
package features

import (
	"strings"

	"github.com/apex/log"

	"github.com/k2io/wrench/internal/config"
	"github.com/k2io/wrench/internal/events"
	"github.com/k2io/wrench/internal/logging"
)

// Platform provides the process specific parts of the features.
type Platform interface {
	// Buffers reaches the D3D buffer objects behind resources.
	Buffers() Buffers
	// HookMovies routes movie scale mode changes through u.
	HookMovies(u *UIScale) error
}

// Defaults installs the default options.
func Defaults(cfg *config.Config) {
	cfg.SetBool(true, "Features", "BackdropFix")
	cfg.SetBool(true, "Features", "UiScale")
	for _, movie := range []string{
		"Interface/HUDMenu.swf",
		"Interface/FaderMenu.swf",
		"Interface/ButtonBarMenu.swf",
	} {
		cfg.Set(ShowAll.String(), "Movies", movie, "ScaleMode")
	}
}

// Register subscribes the features enabled in cfg to hub. It must run
// before the device is created.
func Register(cfg *config.Config, hub *events.Hub, p Platform, l log.Interface) {
	if cfg.GetBool("Features", "UiScale") {
		u := NewUIScale(cfg, l)
		hub.Register(events.Callbacks{
			AfterDeviceCreate: func(_, _, _ uintptr) {
				u.install(p)
			},
		})
	}
	if cfg.GetBool("Features", "BackdropFix") {
		hub.Register(NewBackdrop(p.Buffers(), l).Callbacks())
	}
}

// LogConfig writes every resolved option to l, booleans bare and strings
// quoted.
func LogConfig(cfg *config.Config, l log.Interface) {
	e := logging.Func(l, "LogConfig")
	cfg.Walk(func(opt config.Entry) {
		path := strings.Join(opt.Path, ":") + ":"
		if opt.Bool {
			e.Infof("Config(%s %s)", path, opt.Value)
			return
		}
		e.Infof("Config(%s `%s')", path, opt.Value)
	})
}
