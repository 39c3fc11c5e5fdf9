package main

import (
	"context"
	"log/slog"
	"os"
	"os/user"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/log"
	"github.com/zx06/xpasswd/internal/output"
)

// parseOutputFormat parses and validates the output format string
func parseOutputFormat(s string) (output.Format, error) {
	f := output.Format(s)
	if !output.IsValid(f) {
		return "", errors.New(errors.CodeCfgInvalid, "invalid output format", map[string]any{"format": s, "allowed": output.FormatList()})
	}
	return resolveAuto(f), nil
}

// resolveFormatForError resolves the format for error output
func resolveFormatForError(s string) output.Format {
	f := output.Format(s)
	if !output.IsValid(f) {
		f = output.FormatAuto
	}
	return resolveAuto(f)
}

// resolveAuto resolves "auto" format to appropriate format based on TTY
func resolveAuto(f output.Format) output.Format {
	if f != output.FormatAuto {
		return f
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return output.FormatTable
	}
	return output.FormatJSON
}

// normalizeErr normalizes any error to XError
func normalizeErr(err error) *errors.XError {
	if xe, ok := errors.As(err); ok {
		return xe
	}
	// Preserve original error message
	return errors.Wrap(errors.CodeInternal, err.Error(), nil, err)
}

// newLogger returns the stderr logger; --verbose enables debug output
func newLogger() *slog.Logger {
	if GlobalConfig.Verbose {
		return log.NewWithLevel(os.Stderr, slog.LevelDebug)
	}
	return log.New(os.Stderr)
}

// resolveUsername picks the user: --user > XPASSWD_USER > current OS user
func resolveUsername(cmd *cobra.Command) (string, *errors.XError) {
	userSet := GlobalConfig.UserStr != ""
	if cmd != nil {
		userSet = cmd.Flags().Changed("user")
	}
	if userSet {
		if GlobalConfig.UserStr == "" {
			return "", errors.New(errors.CodeCfgInvalid, "user is empty", nil)
		}
		return GlobalConfig.UserStr, nil
	}
	if env := os.Getenv("XPASSWD_USER"); env != "" {
		return env, nil
	}
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "", errors.New(errors.CodeCfgInvalid, "cannot determine user; pass --user", nil)
	}
	return u.Username, nil
}

// commandContext returns the command's context, or Background when unset
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
