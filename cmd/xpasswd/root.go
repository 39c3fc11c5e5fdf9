package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zx06/xpasswd/internal/config"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/output"
)

// Build-time variables (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Config holds the resolved configuration
type Config struct {
	FormatStr  string
	ConfigStr  string
	ProfileStr string
	UserStr    string
	TimeoutStr string
	Verbose    bool
	Resolved   config.Resolved
}

// GlobalConfig holds the global configuration state
var GlobalConfig = &Config{}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "xpasswd",
		Short:         "Change directory passwords through an external command",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// CLI > ENV > Config
			formatSet := cmd.Flags().Changed("format")
			profileSet := cmd.Flags().Changed("profile")
			configSet := cmd.Flags().Changed("config")
			timeoutSet := cmd.Flags().Changed("timeout")
			if configSet && GlobalConfig.ConfigStr == "" {
				return errors.New(errors.CodeCfgInvalid, "config path is empty", nil)
			}

			r, xe := config.Resolve(config.Options{
				ConfigPath:    GlobalConfig.ConfigStr,
				CLIProfile:    GlobalConfig.ProfileStr,
				CLIProfileSet: profileSet,
				CLIFormat:     GlobalConfig.FormatStr,
				CLIFormatSet:  formatSet,
				CLITimeout:    GlobalConfig.TimeoutStr,
				CLITimeoutSet: timeoutSet,
				EnvProfile:    os.Getenv("XPASSWD_PROFILE"),
				EnvFormat:     os.Getenv("XPASSWD_FORMAT"),
				EnvTimeout:    os.Getenv("XPASSWD_TIMEOUT"),
			})
			if xe != nil {
				return xe
			}
			GlobalConfig.Resolved = r
			GlobalConfig.FormatStr = r.Format
			GlobalConfig.ProfileStr = r.ProfileName
			return nil
		},
	}

	root.PersistentFlags().StringVar(&GlobalConfig.ConfigStr, "config", "", "Config file path (YAML); default: ./xpasswd.yaml or $HOME/.config/xpasswd/xpasswd.yaml")
	root.PersistentFlags().StringVarP(&GlobalConfig.ProfileStr, "profile", "p", "", "Profile name (config: profiles.<name>)")
	root.PersistentFlags().StringVarP(&GlobalConfig.FormatStr, "format", "f", "auto", "Output format: "+output.FormatList())
	root.PersistentFlags().BoolVarP(&GlobalConfig.Verbose, "verbose", "v", false, "Debug logging to stderr")

	return root
}
