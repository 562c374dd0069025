package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/cbzmerge/internal/config"
	"github.com/jackzampolin/cbzmerge/internal/home"
)

var (
	configInitForce    bool
	configShowDefaults bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage cbzmerge configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Write a config file with every key at its default value.

The file goes to --config when given, else to config.yaml in the home
directory (~/.cbzmerge). An existing file is kept unless --force is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}

		path := cfgFile
		exists := false
		if path == "" {
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ConfigPath()
			exists = h.ConfigExists()
		} else if _, err := os.Stat(path); err == nil {
			exists = true
		}

		if exists && !configInitForce {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
		return nil
	},
}

// configView is what config show prints.
type configView struct {
	File   string         `json:"file" yaml:"file"`
	Config *config.Config `json:"config" yaml:"config"`
}

var configShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and CBZMERGE_*
environment variables are applied. With --defaults, list every key with its
default value and description instead, or only the given key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if configShowDefaults {
			if len(args) == 1 {
				entry := config.GetDefault(args[0])
				if entry == nil {
					return fmt.Errorf("no default for config key %q", args[0])
				}
				return printer.Print(entry)
			}
			return printer.Print(config.DefaultEntries())
		}
		if len(args) == 1 {
			return fmt.Errorf("a key can only be given with --defaults")
		}

		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		return printer.Print(configView{
			File:   e.config.ConfigFile(),
			Config: e.config.Get(),
		})
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a config file against the config schema",
	Long: `Validate a config file. Without an argument the file in use is checked
(--config, ./config.yaml or ~/.cbzmerge/config.yaml), followed by the
effective configuration including environment overrides.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := config.ValidateFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		mgr, err := config.NewManager(cfgFile, h.Path())
		if err != nil {
			return err
		}
		file := mgr.ConfigFile()
		if file != "" {
			if err := config.ValidateFile(file); err != nil {
				return err
			}
		}
		if err := config.Validate(mgr.Get()); err != nil {
			return err
		}

		if file == "" {
			file = "defaults"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", file)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configShowCmd.Flags().BoolVar(&configShowDefaults, "defaults", false, "List default values with descriptions")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
