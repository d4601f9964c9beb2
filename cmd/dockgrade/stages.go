package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c4rb0nx1/dockgrade/internal/check"
	"github.com/c4rb0nx1/dockgrade/internal/stage"
)

var stagesRules bool

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List the stages and their rules",
	Args:  cobra.NoArgs,
	RunE:  runStages,
}

func init() {
	stagesCmd.Flags().BoolVar(&stagesRules, "rules", false, "Show each stage's rules")
}

func runStages(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	stages, err := stage.Load(cfg.Stages.File)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Stages.File != "" {
		_, _ = fmt.Fprintf(out, "Catalogue: %s\n", cfg.Stages.File)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, st := range stages {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d rule(s)\t%s\n", st.Number, st.Name, len(st.Rules), st.Description)
		if !stagesRules {
			continue
		}
		for _, rule := range st.Rules {
			_, _ = fmt.Fprintf(tw, "\t- %s\t%s\t%s\n", rule.Name, rule.Kind, ruleSummary(rule))
		}
	}
	return tw.Flush()
}

func ruleSummary(rule check.Rule) string {
	var parts []string
	if rule.Image != "" {
		ref := rule.Image
		if rule.Tag != "" {
			ref += ":" + rule.Tag
		}
		parts = append(parts, "image="+ref)
	}
	if rule.Ports != "" {
		parts = append(parts, "ports="+rule.Ports)
	}
	if rule.URL != "" {
		parts = append(parts, "url="+rule.URL)
	}
	if rule.Line != "" {
		parts = append(parts, fmt.Sprintf("line=%q", rule.Line))
	}
	if len(rule.Keywords) > 0 {
		parts = append(parts, "keywords="+strings.Join(rule.Keywords, ","))
	}
	if len(rule.AllowedPrefixes) > 0 {
		parts = append(parts, "allowed="+strings.Join(rule.AllowedPrefixes, ","))
	}
	return strings.Join(parts, " ")
}
