package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c4rb0nx1/dockgrade/internal/config"
	"github.com/c4rb0nx1/dockgrade/internal/inspector"
	"github.com/c4rb0nx1/dockgrade/internal/stage"
)

const (
	doctorStatusPass = "PASS"
	doctorStatusFail = "FAIL"
)

var doctorJSON bool

var doctorLookPath = exec.LookPath
var doctorRunCommand = func(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}
var doctorServerVersion = func(ctx context.Context) (string, error) {
	sdk := inspector.NewSDK()
	defer sdk.Close()
	return sdk.ServerVersion(ctx)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight environment checks",
	Long: `Verifies what grading depends on before a learner runs a stage.

Checks include config validity, runtime binary discovery, container daemon
reachability and whether the stage catalogue loads.`,
	RunE: runDoctor,
}

type doctorCheck struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Critical bool   `json:"critical"`
	Message  string `json:"message"`
}

type doctorReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []doctorCheck `json:"checks"`
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Emit machine-readable JSON output")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	report := doctorReport{}

	addDoctorCheck := func(c doctorCheck) {
		report.Checks = append(report.Checks, c)
	}
	addDoctorCheck(doctorCheckActiveBinary())

	cfg, cfgErr := loadConfig(cmd)
	if cfgErr != nil {
		addDoctorCheck(doctorCheck{
			Name:     "Runtime config",
			Status:   doctorStatusFail,
			Critical: true,
			Message:  fmt.Sprintf("could not load config: %v", cfgErr),
		})
	} else {
		addDoctorCheck(doctorCheckConfig(cfg))

		if cfg.Runtime.Backend == config.BackendCLI {
			cliCheck := doctorCheckRuntimeCLI(cfg.Runtime.CLI)
			addDoctorCheck(cliCheck)
			if cliCheck.Status == doctorStatusPass {
				addDoctorCheck(doctorCheckDaemonViaCLI(cfg.Runtime.CLI))
			}
		} else {
			addDoctorCheck(doctorCheckDaemonViaSDK(commandContext(cmd)))
		}

		addDoctorCheck(doctorCheckStages(cfg.Stages.File))
	}

	criticalFailures := 0
	for _, check := range report.Checks {
		if check.Status == doctorStatusFail && check.Critical {
			criticalFailures++
		}
	}
	report.Healthy = criticalFailures == 0

	if doctorJSON {
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to build doctor JSON report: %w", err)
		}
		_, _ = out.Write(payload)
		_, _ = fmt.Fprintln(out)
		if report.Healthy {
			return nil
		}
		return fmt.Errorf("critical preflight checks failed")
	}

	for _, check := range report.Checks {
		prefix := "PASS"
		if check.Status != doctorStatusPass {
			prefix = "FAIL"
		}
		criticalMarker := ""
		if check.Critical {
			criticalMarker = "[critical] "
		}
		fmt.Fprintf(out, "[%s] %s%s: %s\n", prefix, criticalMarker, check.Name, check.Message)
	}

	if report.Healthy {
		_, _ = fmt.Fprintln(out, "[PASS] All critical checks passed.")
		return nil
	}
	return fmt.Errorf("critical preflight checks failed")
}

func doctorCheckActiveBinary() doctorCheck {
	path, err := doctorLookPath("dockgrade")
	if err != nil {
		return doctorCheck{
			Name:     "Active binary path",
			Status:   doctorStatusFail,
			Critical: false,
			Message:  "dockgrade is not discoverable from PATH",
		}
	}

	return doctorCheck{
		Name:     "Active binary path",
		Status:   doctorStatusPass,
		Critical: false,
		Message:  fmt.Sprintf("command -v found %s", path),
	}
}

func doctorCheckConfig(cfg *config.Config) doctorCheck {
	source := "defaults only"
	if len(cfg.Files) > 0 {
		source = strings.Join(cfg.Files, ", ")
	}

	return doctorCheck{
		Name:     "Runtime config",
		Status:   doctorStatusPass,
		Critical: true,
		Message:  fmt.Sprintf("backend=%s cli=%s (%s)", cfg.Runtime.Backend, cfg.Runtime.CLI, source),
	}
}

func doctorCheckRuntimeCLI(binary string) doctorCheck {
	path, err := doctorLookPath(binary)
	if err != nil {
		return doctorCheck{
			Name:     "Runtime CLI",
			Status:   doctorStatusFail,
			Critical: true,
			Message:  fmt.Sprintf("%s is not discoverable from PATH", binary),
		}
	}

	return doctorCheck{
		Name:     "Runtime CLI",
		Status:   doctorStatusPass,
		Critical: true,
		Message:  fmt.Sprintf("command -v found %s", path),
	}
}

func doctorCheckDaemonViaCLI(binary string) doctorCheck {
	output, err := doctorRunCommand(binary, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return doctorCheck{
			Name:     "Container daemon",
			Status:   doctorStatusFail,
			Critical: true,
			Message:  fmt.Sprintf("%s daemon ping failed: %v", binary, err),
		}
	}

	out := strings.TrimSpace(string(output))
	if out == "" {
		return doctorCheck{
			Name:     "Container daemon",
			Status:   doctorStatusFail,
			Critical: true,
			Message:  fmt.Sprintf("%s daemon ping returned no version output", binary),
		}
	}

	return doctorCheck{
		Name:     "Container daemon",
		Status:   doctorStatusPass,
		Critical: true,
		Message:  fmt.Sprintf("%s daemon reachable (server=%s)", binary, out),
	}
}

func doctorCheckDaemonViaSDK(ctx context.Context) doctorCheck {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	version, err := doctorServerVersion(ctx)
	if err != nil {
		return doctorCheck{
			Name:     "Container daemon",
			Status:   doctorStatusFail,
			Critical: true,
			Message:  fmt.Sprintf("docker engine API unreachable: %v", err),
		}
	}

	return doctorCheck{
		Name:     "Container daemon",
		Status:   doctorStatusPass,
		Critical: true,
		Message:  fmt.Sprintf("docker engine API reachable (server=%s)", version),
	}
}

func doctorCheckStages(path string) doctorCheck {
	stages, err := stage.Load(path)
	if err != nil {
		return doctorCheck{
			Name:     "Stage catalogue",
			Status:   doctorStatusFail,
			Critical: true,
			Message:  err.Error(),
		}
	}

	rules := 0
	for _, st := range stages {
		rules += len(st.Rules)
	}
	source := "built-in"
	if path != "" {
		source = path
	}

	return doctorCheck{
		Name:     "Stage catalogue",
		Status:   doctorStatusPass,
		Critical: true,
		Message:  fmt.Sprintf("%d stages, %d rules (%s)", len(stages), rules, source),
	}
}
