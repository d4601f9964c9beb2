package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

var psAll bool

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List images as the grader sees them",
	Args:  cobra.NoArgs,
	RunE:  runImages,
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List containers as the grader sees them",
	Args:  cobra.NoArgs,
	RunE:  runPs,
}

func init() {
	psCmd.Flags().BoolVarP(&psAll, "all", "a", false, "Include stopped containers")
}

func runImages(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	insp, release, err := newInspector(cfg)
	if err != nil {
		return err
	}
	defer release()

	images, err := insp.ListImages(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(images) == 0 {
		_, _ = fmt.Fprintln(out, "No images found")
		return nil
	}

	var totalSize int64
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "REPOSITORY\tTAG\tIMAGE ID\tSIZE")
	for _, image := range images {
		if size, err := units.FromHumanSize(image.Size); err == nil {
			totalSize += size
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", image.Repository, image.Tag, image.ID, dashIfEmpty(image.Size))
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(out, "Found %d images (%s total)\n", len(images), units.HumanSizeWithPrecision(float64(totalSize), 3))
	return nil
}

func runPs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	insp, release, err := newInspector(cfg)
	if err != nil {
		return err
	}
	defer release()

	containers, err := insp.ListContainers(commandContext(cmd), psAll)
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(containers) == 0 {
		if psAll {
			_, _ = fmt.Fprintln(out, "No containers found")
		} else {
			_, _ = fmt.Fprintln(out, "No running containers found")
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CONTAINER ID\tIMAGE\tSTATE\tPORTS\tNAMES")
	for _, c := range containers {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Image, dashIfEmpty(c.State), dashIfEmpty(c.Ports), dashIfEmpty(c.Names))
	}
	return tw.Flush()
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
