package main

import (
	"github.com/spf13/cobra"

	"github.com/zx06/xpasswd/internal/app"
	"github.com/zx06/xpasswd/internal/output"
	"github.com/zx06/xpasswd/internal/template"
)

// NewPreviewCommand creates the preview command
func NewPreviewCommand(w *output.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the expanded password command without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, w)
		},
	}
	cmd.Flags().StringVarP(&GlobalConfig.UserStr, "user", "u", "", "Username (login or local@domain); env: XPASSWD_USER")
	return cmd
}

func runPreview(cmd *cobra.Command, w *output.Writer) error {
	format, err := parseOutputFormat(GlobalConfig.FormatStr)
	if err != nil {
		return err
	}
	username, xe := resolveUsername(cmd)
	if xe != nil {
		return xe
	}
	res, xe := app.Preview(GlobalConfig.Resolved.ProfileName, GlobalConfig.Resolved.Profile, template.Identity{Username: username})
	if xe != nil {
		return xe
	}
	return w.WriteOK(format, res)
}
