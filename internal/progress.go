package internal

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// UIManager handles terminal output for the CLI (spinners, status lines)
type UIManager interface {
	NewSpinner(description string) ProgressBar

	Printf(format string, args ...any)
	Println(args ...any)
}

// ProgressBar abstracts progress bar operations
type ProgressBar interface {
	Advance()
	Describe(description string)
	Finish()
}

// StandardUIManager writes progress to stderr and messages to stdout
type StandardUIManager struct {
	quiet       bool
	interactive bool
	out         io.Writer
	progressOut io.Writer
}

// NewUIManager creates a UIManager. Progress is drawn only when stderr is a terminal.
func NewUIManager(quiet bool) UIManager {
	return &StandardUIManager{
		quiet:       quiet,
		interactive: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		out:         os.Stdout,
		progressOut: os.Stderr,
	}
}

func (ui *StandardUIManager) silent() bool {
	return ui.quiet || !ui.interactive
}

func (ui *StandardUIManager) NewSpinner(description string) ProgressBar {
	if ui.silent() {
		return &SilentProgressBar{}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(ui.progressOut),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &VisibleProgressBar{bar: bar}
}

func (ui *StandardUIManager) Printf(format string, args ...any) {
	if !ui.quiet {
		fmt.Fprintf(ui.out, format, args...)
	}
}

func (ui *StandardUIManager) Println(args ...any) {
	if !ui.quiet {
		fmt.Fprintln(ui.out, args...)
	}
}

// VisibleProgressBar wraps the actual progress bar
type VisibleProgressBar struct {
	bar *progressbar.ProgressBar
}

func (v *VisibleProgressBar) Advance() {
	_ = v.bar.Add(1)
}

func (v *VisibleProgressBar) Describe(description string) {
	v.bar.Describe(description)
}

func (v *VisibleProgressBar) Finish() {
	_ = v.bar.Finish()
}

// SilentProgressBar discards all progress
type SilentProgressBar struct{}

func (SilentProgressBar) Advance()        {}
func (SilentProgressBar) Describe(string) {}
func (SilentProgressBar) Finish()         {}

type statusKey struct{}

// WithStatus attaches a progress bar that long running steps describe themselves on
func WithStatus(ctx context.Context, bar ProgressBar) context.Context {
	return context.WithValue(ctx, statusKey{}, bar)
}

// reportStatus updates the progress bar carried by ctx, if any
func reportStatus(ctx context.Context, description string) {
	bar, ok := ctx.Value(statusKey{}).(ProgressBar)
	if !ok || bar == nil {
		return
	}
	bar.Describe(description)
	bar.Advance()
}
