package main

import (
	"errors"
	"testing"

	"github.com/conorfennell/flashmem/internal/config"
)

func TestConfigExitCode(t *testing.T) {
	_, err := config.Load([]string{"--help"})
	if err == nil {
		t.Fatal("Expected --help to stop config loading")
	}
	if code := configExitCode(err); code != 0 {
		t.Errorf("Expected exit code 0 for --help, got %d", code)
	}

	_, err = config.Load([]string{"--mode", "spaced"})
	if err == nil {
		t.Fatal("Expected an invalid mode to fail")
	}
	if code := configExitCode(err); code != 2 {
		t.Errorf("Expected exit code 2 for an invalid config, got %d", code)
	}

	if code := configExitCode(errors.New("boom")); code != 2 {
		t.Errorf("Expected exit code 2 for an arbitrary error, got %d", code)
	}
}
