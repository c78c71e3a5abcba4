//go:build !(windows && amd64)

package main

import (
	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/config"
)

func installDisplay(cfg *config.Config, l log.Interface) error {
	return errors.New("display fixes need windows/amd64")
}
