package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zx06/xpasswd/internal/app"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/output"
	"github.com/zx06/xpasswd/internal/runner"
	"github.com/zx06/xpasswd/internal/secret"
	"github.com/zx06/xpasswd/internal/template"
)

// ChangeFlags holds flags for the change command
type ChangeFlags struct {
	NewPasswordFile     string
	CurrentPasswordFile string
	AllowPlaintext      bool
	SSHSkipHostKey      bool
}

// NewChangeCommand creates the change command
func NewChangeCommand(w *output.Writer) *cobra.Command {
	flags := &ChangeFlags{}
	cmd := &cobra.Command{
		Use:   "change",
		Short: "Change a user's password through the profile's command",
		Long: `Change a user's password by running the profile's command template.

The new password is written to the command's stdin. When the template contains
%currpasspipe, it is replaced with /dev/fd/3 and the current password is written
to that descriptor. Passwords never appear in argv or the environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChange(cmd, flags, w)
		},
	}
	cmd.Flags().StringVarP(&GlobalConfig.UserStr, "user", "u", "", "Username (login or local@domain); env: XPASSWD_USER")
	cmd.Flags().StringVar(&GlobalConfig.TimeoutStr, "timeout", "", "Maximum run time of the password command (e.g. 30s); env: XPASSWD_TIMEOUT")
	cmd.Flags().StringVar(&flags.NewPasswordFile, "new-password-file", "", "Read the new password from file ('-' for stdin); prompts on a TTY if unset")
	cmd.Flags().StringVar(&flags.CurrentPasswordFile, "current-password-file", "", "Read the current password from file ('-' for stdin); only used with %currpasspipe")
	cmd.Flags().BoolVar(&flags.AllowPlaintext, "allow-plaintext", false, "Allow plaintext secrets in config")
	cmd.Flags().BoolVar(&flags.SSHSkipHostKey, "ssh-skip-known-hosts-check", false, "Skip SSH known_hosts check (dangerous)")
	return cmd
}

func runChange(cmd *cobra.Command, flags *ChangeFlags, w *output.Writer) error {
	format, err := parseOutputFormat(GlobalConfig.FormatStr)
	if err != nil {
		return err
	}
	username, xe := resolveUsername(cmd)
	if xe != nil {
		return xe
	}

	resolved := GlobalConfig.Resolved
	r, xe := app.NewRunner(app.RunnerOptions{
		ProfileName:      resolved.ProfileName,
		Profile:          resolved.Profile,
		Timeout:          resolved.Timeout,
		AllowPlaintext:   flags.AllowPlaintext,
		SkipHostKeyCheck: flags.SSHSkipHostKey,
		Logger:           newLogger(),
	})
	if xe != nil {
		return xe
	}

	wantCurrent := template.WantsCurrentPassword(resolved.Profile.Command)
	if wantCurrent && flags.NewPasswordFile == "-" && flags.CurrentPasswordFile == "-" {
		return errors.New(errors.CodeCfgInvalid, "stdin can supply only one password", nil)
	}

	var current *secret.Buffer
	if wantCurrent {
		current, xe = readPassword(flags.CurrentPasswordFile, "Current password", false)
		if xe != nil {
			return xe
		}
		defer current.Close()
	}
	newPass, xe := readPassword(flags.NewPasswordFile, "New password", true)
	if xe != nil {
		return xe
	}
	defer newPass.Close()

	creds := runner.Credentials{New: newPass.Bytes()}
	if current != nil {
		creds.Current = current.Bytes()
	}
	if xe := r.Change(commandContext(cmd), template.Identity{Username: username}, creds); xe != nil {
		return xe
	}

	return w.WriteOK(format, output.ChangeResult{Changed: true, User: username, Profile: resolved.ProfileName})
}

// readPassword reads from path when set, otherwise prompts on the terminal
func readPassword(path, label string, confirm bool) (*secret.Buffer, *errors.XError) {
	if path != "" {
		b, err := secret.ReadFromPath(path)
		if err != nil {
			return nil, errors.Wrap(errors.CodeCfgInvalid, "failed to read password", map[string]any{"path": path}, err)
		}
		return b, nil
	}
	fd := int(os.Stdin.Fd())
	var (
		b   *secret.Buffer
		err error
	)
	if confirm {
		b, err = secret.PromptConfirm(fd, os.Stderr, label)
	} else {
		b, err = secret.Prompt(fd, os.Stderr, label)
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeCfgInvalid, err.Error(), nil, err)
	}
	return b, nil
}
