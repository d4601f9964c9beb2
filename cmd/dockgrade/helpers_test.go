package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"

	"github.com/c4rb0nx1/dockgrade/internal/config"
	"github.com/c4rb0nx1/dockgrade/internal/inspector"
)

type fakeInspector struct {
	images     []inspector.ImageRecord
	containers []inspector.ContainerRecord
	lastAll    bool
}

func (f *fakeInspector) ListImages(context.Context) ([]inspector.ImageRecord, error) {
	return f.images, nil
}

func (f *fakeInspector) ListContainers(_ context.Context, all bool) ([]inspector.ContainerRecord, error) {
	f.lastAll = all
	return f.containers, nil
}

// isolateConfig points HOME at a temp dir, blanks DOCKGRADE_* overrides and
// moves into an empty working directory.
func isolateConfig(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"DOCKGRADE_DIR", "DOCKGRADE_RUNTIME_BACKEND", "DOCKGRADE_RUNTIME_CLI", "DOCKGRADE_RUNTIME_TIMEOUT",
		"DOCKGRADE_HTTP_TIMEOUT", "DOCKGRADE_HTTP_RETRIES", "DOCKGRADE_STAGES_FILE",
		"DOCKGRADE_REPORT_COLOR", "DOCKGRADE_LOG_LEVEL", "DOCKGRADE_LOG_FILE", "DOCKGRADE_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	chdir(t, t.TempDir())
	return home
}

// useFakeInspector swaps the runtime backend for fake until the test ends.
func useFakeInspector(t *testing.T, fake *fakeInspector) {
	t.Helper()
	prev := newInspector
	prevNoColor := color.NoColor
	t.Cleanup(func() {
		newInspector = prev
		color.NoColor = prevNoColor
	})
	color.NoColor = true
	newInspector = func(*config.Config) (inspector.Inspector, func(), error) {
		return fake, func() {}, nil
	}
}

// chdir changes the working directory to dir and restores it when the test
// ends, mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(prev, dir)
	}
	t.Setenv("PWD", dir)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
