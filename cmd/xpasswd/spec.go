package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/zx06/xpasswd/internal/app"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/output"
	"github.com/zx06/xpasswd/internal/spec"
)

// NewSpecCommand creates the spec command
func NewSpecCommand(a *app.App, w *output.Writer) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Export tool spec for AI/agents",
		Long: "Export the machine-readable interface: commands and flags, the command\n" +
			"template tokens, the exit code table and the stable error codes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}
			s, ok := a.BuildSpec().Section(section)
			if !ok {
				return errors.New(errors.CodeCfgInvalid, "unknown spec section",
					map[string]any{"section": section, "allowed": strings.Join(spec.Sections(), "|")})
			}
			return w.WriteOK(format, s)
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "Only export one section: "+strings.Join(spec.Sections(), "|"))
	return cmd
}
