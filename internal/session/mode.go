package session

import (
	"errors"
	"fmt"
	"strings"
)

// Mode controls the order in which a session presents its cards.
type Mode string

const (
	Sequential Mode = "sequential"
	Random     Mode = "random"
)

// ErrUnknownMode is returned by ParseMode for anything but the known modes.
var ErrUnknownMode = errors.New("session: unknown mode")

// ParseMode parses a mode name, ignoring case. An empty name is Sequential.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Sequential:
		return Sequential, nil
	case Random:
		return Random, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
