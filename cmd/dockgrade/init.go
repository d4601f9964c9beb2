package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c4rb0nx1/dockgrade/internal/config"
	"github.com/c4rb0nx1/dockgrade/internal/stage"
)

const stagesFileName = "stages.yaml"

var initGlobal bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a dockgrade config file and stage catalogue",
	Long: `Creates .dockgrade/config.yaml and .dockgrade/stages.yaml in the current
directory (workspace mode) or in ~/.dockgrade/ (global mode with --global).

stages.yaml is a copy of the built-in stages. Edit it to change rules, allowed
base images, image names or the expected page content.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

type initConfig struct {
	Runtime initRuntime `yaml:"runtime"`
	HTTP    initHTTP    `yaml:"http"`
	Stages  initStages  `yaml:"stages"`
	Report  initReport  `yaml:"report"`
}

type initRuntime struct {
	Backend string `yaml:"backend"`
	CLI     string `yaml:"cli"`
	Timeout string `yaml:"timeout"`
}

type initHTTP struct {
	Timeout string `yaml:"timeout"`
	Retries int    `yaml:"retries"`
}

type initStages struct {
	File string `yaml:"file"`
}

type initReport struct {
	Color bool `yaml:"color"`
}

func init() {
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "Create config in ~/.dockgrade/ instead of current directory")
}

func runInit(cmd *cobra.Command, _ []string) error {
	var configDir string
	// relative stages paths resolve against the workspace root
	var stagesRef string

	if initGlobal {
		dir, err := config.GlobalDir()
		if err != nil {
			return err
		}
		configDir = dir
		stagesRef = filepath.Join(dir, stagesFileName)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		configDir = filepath.Join(cwd, config.DirName)
		stagesRef = filepath.Join(config.DirName, stagesFileName)
	}

	configPath := filepath.Join(configDir, config.FileName)
	stagesPath := filepath.Join(configDir, stagesFileName)

	for _, path := range []string{configPath, stagesPath} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultCfg := initConfig{
		Runtime: initRuntime{Backend: config.BackendCLI, CLI: "docker", Timeout: "0s"},
		HTTP:    initHTTP{Timeout: "10s", Retries: 0},
		Stages:  initStages{File: stagesRef},
		Report:  initReport{Color: true},
	}

	payload, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	catalogue, err := stage.Marshal(stage.Builtin())
	if err != nil {
		return err
	}
	if err := os.WriteFile(stagesPath, catalogue, 0o644); err != nil {
		return fmt.Errorf("failed to write stage catalogue: %w", err)
	}

	cmd.Printf("Created config: %s\n", configPath)
	cmd.Printf("Created stage catalogue: %s\n", stagesPath)
	return nil
}
