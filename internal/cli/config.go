package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowlayout/pkg/config"
)

// configCommand creates the config command group.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, validate or create configuration files",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configValidateCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// configShowCommand prints the resolved configuration.
func (c *CLI) configShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration (defaults, file, environment)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return config.Encode(cmd.OutOrStdout(), config.Format(format), cfg)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatTOML), "output format: toml, yaml, json")
	return cmd
}

// configValidateCommand checks a configuration file.
func (c *CLI) configValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a configuration file",
		Long: `Check a configuration file.

The file is decoded on top of the defaults and validated. Without an
argument the file named by --config or $` + configEnvVar + ` is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c.configPath = args[0]
			}
			if _, err := c.loadConfig(); err != nil {
				printError("Invalid configuration")
				return err
			}
			if c.configPath == "" {
				printSuccess("Defaults are valid")
				return nil
			}
			printSuccess("Configuration is valid")
			printFile(c.configPath)
			return nil
		},
	}
}

// configInitCommand writes the default configuration to a file.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write the default configuration to a file",
		Long: `Write the default configuration to a file.

The format follows the extension (.toml, .yaml, .yml or .json). The default
file is ` + appName + `.toml in the working directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := appName + ".toml"
			if len(args) == 1 {
				path = args[0]
			}
			return writeDefaultConfig(path, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func writeDefaultConfig(path string, force bool) error {
	format, err := config.FormatFromPath(path)
	if err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := config.Encode(f, format, config.Default()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	printSuccess("Wrote default configuration")
	printFile(path)
	printNextStep("Check it", appName+" config validate "+path)
	return nil
}
