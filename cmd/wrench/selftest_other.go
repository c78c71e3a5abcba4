//go:build !(amd64 && (linux || windows))

package main

import (
	"io"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

func selfTest(l log.Interface, w io.Writer) error {
	return errors.New("detours are not supported on this platform")
}
