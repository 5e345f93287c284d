package main

import (
	"errors"
	"fmt"
	"os"

	"oskim/internal/config"
)

// ConfigCmd groups config-related subcommands.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a configuration file with the defaults."`
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration."`
}

// ConfigInitCmd scaffolds a configuration file.
type ConfigInitCmd struct {
	Output string `arg:"" optional:"" type:"path" help:"Destination file. The extension picks the format. Defaults to the config path."`
	Force  bool   `help:"Overwrite if the file already exists."`
}

// Run is called by Kong when the config init command is executed.
func (c *ConfigInitCmd) Run(loader *config.Loader) error {
	dest := c.Output
	if dest == "" {
		dest = loader.Path()
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := config.SaveConfig(config.DefaultConfig(), dest); err != nil {
		return err
	}
	fmt.Println(dest)
	return nil
}

// ConfigShowCmd prints the loaded configuration after environment
// overrides.
type ConfigShowCmd struct {
	Format string `help:"Output format." enum:"toml,json,yaml" default:"toml"`
}

// Run is called by Kong when the config show command is executed.
func (c *ConfigShowCmd) Run(cfg *config.Config) error {
	data, err := config.Encode(cfg, "."+c.Format)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
