package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/c4rb0nx1/dockgrade/internal/config"
	"github.com/c4rb0nx1/dockgrade/internal/stage"
)

func TestRunInit_CreatesWorkspaceConfig(t *testing.T) {
	isolateConfig(t)
	cwd, _ := os.Getwd()

	initGlobal = false
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	configPath := filepath.Join(cwd, ".dockgrade", "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// the scaffold is picked up as workspace config and its catalogue loads
	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatalf("load generated config: %v", err)
	}
	if want := filepath.Join(cwd, ".dockgrade", "stages.yaml"); cfg.Stages.File != want {
		t.Fatalf("Stages.File = %q, want %q", cfg.Stages.File, want)
	}
	stages, err := stage.Load(cfg.Stages.File)
	if err != nil {
		t.Fatalf("load generated catalogue: %v", err)
	}
	if len(stages) != 5 {
		t.Fatalf("generated catalogue has %d stages, want 5", len(stages))
	}
}

func TestRunInit_RefusesOverwrite(t *testing.T) {
	isolateConfig(t)
	cwd, _ := os.Getwd()

	if err := os.MkdirAll(filepath.Join(cwd, ".dockgrade"), 0o755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cwd, ".dockgrade", "stages.yaml"), []byte("stages: []\n"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	initGlobal = false
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	if err := runInit(cmd, nil); err == nil {
		t.Fatal("expected error for existing catalogue")
	}
	if _, err := os.Stat(filepath.Join(cwd, ".dockgrade", "config.yaml")); !os.IsNotExist(err) {
		t.Fatalf("config should not be written when refusing, got err=%v", err)
	}
}

func TestRunInit_GlobalFlag(t *testing.T) {
	isolateConfig(t)
	tmpDir := t.TempDir()
	t.Setenv("DOCKGRADE_DIR", tmpDir)

	initGlobal = true
	t.Cleanup(func() { initGlobal = false })
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit --global failed: %v", err)
	}

	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatalf("load generated config: %v", err)
	}
	if want := filepath.Join(tmpDir, "stages.yaml"); cfg.Stages.File != want {
		t.Fatalf("Stages.File = %q, want %q", cfg.Stages.File, want)
	}
}
