package main

import (
	"os"

	"github.com/zx06/xpasswd/internal/app"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/output"
)

func main() {
	exit := run()
	os.Exit(exit)
}

// run is the main entry point
func run() int {
	a := app.New(version, commit, date)
	w := output.New(os.Stdout, os.Stderr)

	root := NewRootCommand()

	root.AddCommand(NewSpecCommand(&a, &w))
	root.AddCommand(NewVersionCommand(&a, &w))
	root.AddCommand(NewChangeCommand(&w))
	root.AddCommand(NewPreviewCommand(&w))
	root.AddCommand(NewProfileCommand(&w))
	root.AddCommand(NewMCPCommand())

	if err := root.Execute(); err != nil {
		xe := normalizeErr(err)
		format := resolveFormatForError(GlobalConfig.FormatStr)
		_ = w.WriteError(format, xe)
		return int(errors.ExitCodeFor(xe.Code))
	}

	return int(errors.ExitOK)
}
