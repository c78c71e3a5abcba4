package features

import (
	"sync"

	"github.com/apex/log"

	"github.com/k2io/wrench/internal/config"
	"github.com/k2io/wrench/internal/logging"
)

// ScaleMode is Scaleform's view scale mode.
type ScaleMode uint32

const (
	NoScale ScaleMode = iota
	ShowAll
	ExactFit
	NoBorder
	scaleModeCount
)

var scaleModeNames = [scaleModeCount]string{
	"NoScale",
	"ShowAll",
	"ExactFit",
	"NoBorder",
}

func (m ScaleMode) String() string {
	if m < scaleModeCount {
		return scaleModeNames[m]
	}
	return "Unknown"
}

// ParseScaleMode returns the mode with the given name.
func ParseScaleMode(name string) (ScaleMode, bool) {
	for i, n := range scaleModeNames {
		if n == name {
			return ScaleMode(i), true
		}
	}
	return scaleModeCount, false
}

// UIScale overrides the scale mode of movies per file name, from the
// Movies.<file>.ScaleMode options.
type UIScale struct {
	cfg  *config.Config
	log  log.Interface
	once sync.Once
}

// NewUIScale returns the override reading cfg.
func NewUIScale(cfg *config.Config, l log.Interface) *UIScale {
	return &UIScale{cfg: cfg, log: l}
}

// Decide returns the mode to apply instead of mode for the movie loaded from
// filename.
func (u *UIScale) Decide(mode ScaleMode, filename string) ScaleMode {
	l := logging.Func(u.log, "MovieSetViewScaleMode")
	newMode := mode
	if name, ok := u.cfg.Get("Movies", filename, "ScaleMode"); ok {
		newMode, _ = ParseScaleMode(name)
	}

	if newMode != scaleModeCount && newMode != mode {
		l.Infof("Overriding scale mode: old=%s, new=%s, filename=%s", mode, newMode, filename)
		return newMode
	}
	l.Infof("Using default scale mode: mode=%s, filename=%s", mode, filename)
	return mode
}

// install hooks the movies once; the device may be created many times.
func (u *UIScale) install(p Platform) {
	u.once.Do(func() {
		if err := p.HookMovies(u); err != nil {
			logging.Func(u.log, "OnDeviceCreate").Errorf("Could not hook movies: %v", err)
		}
	})
}
