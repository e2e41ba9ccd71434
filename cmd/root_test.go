package cmd

import (
	"testing"

	"github.com/aejsmith/kiwi-sub001/cfg"
)

func TestRunDemoEndToEnd(t *testing.T) {
	if err := runDemo(cfg.Defaults()); err != nil {
		t.Fatalf("runDemo: %v", err)
	}
}
