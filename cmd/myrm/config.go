package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/myrm/pkg/myrm/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage myrm configuration settings.

Configuration is loaded from:
  1. the file given with --config
  2. $XDG_CONFIG_HOME/myrm/config.yaml (if set)
  3. ~/.config/myrm/config.yaml

Environment variables can override config file settings using the MYRM_ prefix:
  MYRM_BUCKET_MAX_SIZE=2GiB
  MYRM_BUCKET_RETENTION=14
  MYRM_HISTORY_BACKEND=badger`,
	// Config commands must work even when the settings file is broken.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after files, environment, and flags are applied.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Write a commented default configuration file. An existing file is kept unless --force is given.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow prints the effective configuration as YAML.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if configUsed != "" {
		fmt.Fprintf(out, "# Config file: %s\n", configUsed)
	} else {
		fmt.Fprintln(out, "# Config file: (using defaults, no file found)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// runConfigInit writes the default configuration file.
func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := config.WriteDefault(cfgFile, configForce)
	if errors.Is(err, config.ErrConfigExists) {
		printInfo(cmd, "Config file already exists: %s", path)
		printInfo(cmd, "Use 'myrm config init --force' to replace it.")
		return nil
	}
	if err != nil {
		return err
	}

	printInfo(cmd, "Created default config file: %s", path)
	return nil
}

// runConfigPath prints the configuration file path.
func runConfigPath(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)

	if _, err := os.Stat(path); err == nil {
		printVerbose(cmd, "File exists")
	} else if os.IsNotExist(err) {
		printVerbose(cmd, "File does not exist (will use defaults)")
	}

	return nil
}
