package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var aboutCmd = &cobra.Command{
	Use:   "about",
	Short: "Show a human-friendly overview of dockgrade",
	Long:  "Prints what dockgrade is, what each stage expects, and how to run a check.",
	RunE:  runAbout,
}

func runAbout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	_, err := fmt.Fprintf(out, `dockgrade %s

dockgrade grades the "Run Docker Run" exercise one stage at a time.
Your program prints the path of your Dockerfile. dockgrade reads that
Dockerfile and asks the local container runtime what exists and what is running.

Stages:
1) Base images:         JVM base images, a named build stage, .dockerignore, images pulled
2) Dockerfile content:  FROM, WORKDIR, COPY/ADD, RUN, EXPOSE 8080, ENTRYPOINT
3) Image build:         hyper-web-app:latest exists
4) Container run:       hyper-web-app publishes 8080->8080 and serves the welcome page
5) Cleanup:             container stopped and removed, image removed

Quick start:
1) Check your setup:     dockgrade doctor
2) Grade a stage:        dockgrade check --stage 1 -- ./print-dockerfile.sh
3) See what is graded:   dockgrade stages --rules

Tip: use 'dockgrade --help' to explore commands.
`, version)

	return err
}
