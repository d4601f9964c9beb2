package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/c4rb0nx1/dockgrade/internal/check"
	"github.com/c4rb0nx1/dockgrade/internal/inspector"
	"github.com/c4rb0nx1/dockgrade/internal/runner"
)

// Report is the outcome of one stage run.
type Report struct {
	RunID    string          `json:"run_id"`
	Stage    int             `json:"stage"`
	Name     string          `json:"name"`
	Passed   bool            `json:"passed"`
	Verdicts []check.Verdict `json:"verdicts"`
	// Skipped counts rules not evaluated after the first failure.
	Skipped  int           `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Failed returns the failing verdicts.
func (r *Report) Failed() []check.Verdict {
	var failed []check.Verdict
	for _, v := range r.Verdicts {
		if !v.Passed {
			failed = append(failed, v)
		}
	}
	return failed
}

// Driver runs stages against the learner's program and the local runtime.
type Driver struct {
	// Program is the command line of the learner's program. Its first
	// non-empty output line is the Dockerfile path.
	Program string

	Runner    runner.Commander
	Inspector inspector.Inspector
	HTTP      *retryablehttp.Client

	// KeepGoing evaluates every rule instead of stopping at the first failure.
	KeepGoing bool
}

// Run evaluates the stage's rules in order.
func (d *Driver) Run(ctx context.Context, st Stage) *Report {
	report := &Report{
		RunID:  uuid.NewString(),
		Stage:  st.Number,
		Name:   st.Name,
		Passed: true,
	}
	logger := log.With().Str("run_id", report.RunID).Int("stage", st.Number).Logger()
	logger.Info().Str("name", st.Name).Int("rules", len(st.Rules)).Msg("Running stage")

	env := check.Env{
		DockerfilePath: d.dockerfilePath(logger),
		Inspector:      d.Inspector,
		HTTP:           d.HTTP,
	}

	start := time.Now()
	for i, rule := range st.Rules {
		v := check.Evaluate(ctx, rule, env)
		report.Verdicts = append(report.Verdicts, v)
		if v.Passed {
			continue
		}

		report.Passed = false
		logger.Info().Str("rule", rule.Name).Str("reason", v.Message).Msg("Rule failed")
		if !d.KeepGoing {
			report.Skipped = len(st.Rules) - i - 1
			break
		}
	}
	report.Duration = time.Since(start)

	logger.Info().Bool("passed", report.Passed).Dur("duration", report.Duration).Msg("Stage finished")
	return report
}

// RunAll runs stages in order. Without KeepGoing it stops after the first
// stage that fails.
func (d *Driver) RunAll(ctx context.Context, stages []Stage) []*Report {
	var reports []*Report
	for _, st := range stages {
		report := d.Run(ctx, st)
		reports = append(reports, report)
		if !report.Passed && !d.KeepGoing {
			break
		}
	}
	return reports
}

// dockerfilePath runs the learner's program on every call so each rule sees
// the program's current answer.
func (d *Driver) dockerfilePath(logger zerolog.Logger) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if strings.TrimSpace(d.Program) == "" {
			return "", fmt.Errorf("no program given to print the Dockerfile path")
		}
		if d.Runner == nil {
			return "", fmt.Errorf("no command runner configured")
		}

		res, err := d.Runner.Run(ctx, d.Program)
		if err != nil {
			return "", fmt.Errorf("failed to run the program: %w", err)
		}
		if res.ExitCode != 0 {
			logger.Warn().Int("exit_code", res.ExitCode).Str("program", d.Program).Msg("Program exited with non-zero status")
		}

		path := FirstLine(res.Lines)
		logger.Debug().Str("dockerfile", path).Msg("Resolved Dockerfile path")
		return path, nil
	}
}

// FirstLine returns the first non-blank line, trimmed.
func FirstLine(lines []string) string {
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
