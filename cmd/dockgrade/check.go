package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/c4rb0nx1/dockgrade/internal/check"
	"github.com/c4rb0nx1/dockgrade/internal/runner"
	"github.com/c4rb0nx1/dockgrade/internal/stage"
)

var (
	checkStage     int
	checkAll       bool
	checkKeepGoing bool
	checkJSON      bool
)

var checkCmd = &cobra.Command{
	Use:   "check (--stage N | --all) [-- program [args...]]",
	Short: "Grade one stage, or every stage in order",
	Long: `Runs the rules of a stage and prints one verdict per rule.

Everything after -- is the learner's program and its arguments, each quoted
for the shell. It is run through the host shell each time a rule needs the
Dockerfile, and the first non-empty line it prints
is taken as the Dockerfile path. Stages that only query the container runtime
do not run it.

By default grading stops at the first failing rule (and, with --all, at the
first failing stage). --keep-going evaluates everything.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCheck,
}

type checkOutput struct {
	Passed  bool            `json:"passed"`
	Reports []*stage.Report `json:"reports"`
}

func init() {
	checkCmd.Flags().IntVarP(&checkStage, "stage", "s", 0, "Stage number to grade")
	checkCmd.Flags().BoolVar(&checkAll, "all", false, "Grade every stage in order")
	checkCmd.Flags().BoolVar(&checkKeepGoing, "keep-going", false, "Evaluate every rule instead of stopping at the first failure")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Emit machine-readable JSON output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkAll == (checkStage != 0) {
		return errors.New("exactly one of --stage or --all is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	stages, err := stage.Load(cfg.Stages.File)
	if err != nil {
		return err
	}

	selected := stages
	if !checkAll {
		st, err := stage.Find(stages, checkStage)
		if err != nil {
			return err
		}
		selected = []stage.Stage{st}
	}

	insp, release, err := newInspector(cfg)
	if err != nil {
		return err
	}
	defer release()

	driver := &stage.Driver{
		Program:   programLine(args),
		Runner:    runner.New(false, cfg.Runtime.Timeout),
		Inspector: insp,
		HTTP:      check.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.Retries),
		KeepGoing: checkKeepGoing,
	}

	reports := driver.RunAll(commandContext(cmd), selected)

	result := checkOutput{Passed: true, Reports: reports}
	failedRules := 0
	for _, r := range reports {
		if !r.Passed {
			result.Passed = false
		}
		failedRules += len(r.Failed())
	}

	out := cmd.OutOrStdout()
	if checkJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to build check JSON report: %w", err)
		}
		_, _ = out.Write(payload)
		_, _ = fmt.Fprintln(out)
	} else {
		if !cfg.Report.Color {
			color.NoColor = true
		}
		for _, r := range reports {
			printReport(out, r)
		}
	}

	if result.Passed {
		return nil
	}
	return fmt.Errorf("%d rule(s) failed", failedRules)
}

// programLine quotes args into one shell command line so arguments with
// spaces reach the program intact.
func programLine(args []string) string {
	if runtime.GOOS == "windows" {
		return strings.Join(args, " ")
	}
	return shellquote.Join(args...)
}

func printReport(out io.Writer, r *stage.Report) {
	pass := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	_, _ = fmt.Fprintf(out, "Stage %d: %s %s\n", r.Stage, r.Name, dim("("+r.RunID+")"))
	for _, v := range r.Verdicts {
		if v.Passed {
			_, _ = fmt.Fprintf(out, "  [%s] %s\n", pass("PASS"), v.Rule)
			continue
		}
		_, _ = fmt.Fprintf(out, "  [%s] %s: %s\n", fail("FAIL"), v.Rule, v.Message)
	}
	if r.Skipped > 0 {
		_, _ = fmt.Fprintf(out, "  %s\n", dim(fmt.Sprintf("%d rule(s) not run", r.Skipped)))
	}

	if r.Passed {
		_, _ = fmt.Fprintf(out, "[%s] Stage %d passed.\n", pass("PASS"), r.Stage)
		return
	}
	_, _ = fmt.Fprintf(out, "[%s] Stage %d failed.\n", fail("FAIL"), r.Stage)
}
