package main

import (
	"fmt"

	"github.com/c4rb0nx1/dockgrade/internal/config"
	"github.com/c4rb0nx1/dockgrade/internal/inspector"
	"github.com/c4rb0nx1/dockgrade/internal/runner"
)

// newInspector builds the configured runtime backend. The returned func
// releases it. Tests replace this.
var newInspector = func(cfg *config.Config) (inspector.Inspector, func(), error) {
	switch cfg.Runtime.Backend {
	case config.BackendCLI:
		return inspector.NewCLI(cfg.Runtime.CLI, runner.New(true, cfg.Runtime.Timeout)), func() {}, nil
	case config.BackendSDK:
		sdk := inspector.NewSDK()
		return sdk, func() { _ = sdk.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported runtime backend %q", cfg.Runtime.Backend)
}
