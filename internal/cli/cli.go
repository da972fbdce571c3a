// Package cli implements the command handlers behind the promptweaver
// binary: resolving an entry document into variations, and validating a
// document tree without generating anything.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/service"
	"github.com/promptweaver/promptweaver/internal/validation"
)

// App carries the handler dependencies resolved by the entry point.
type App struct {
	Out     io.Writer
	Errs    apperrors.ErrorHandler
	Format  string // json or text
	Options service.Options
}

// Generate resolves entryPath and writes the variation list.
func (a *App) Generate(entryPath string) error {
	engine := service.NewEngine(a.Options)
	result, err := engine.Run(entryPath)
	if err != nil {
		if result != nil && result.Validation != nil && !result.Validation.Valid {
			a.writeValidation(result.Validation)
		}
		return a.Errs.HandleError(err)
	}

	if a.Format == "text" {
		a.writeText(result)
		return nil
	}
	return a.writeJSON(result)
}

// Validate runs the validation pass and writes the findings. A failed
// validation returns an error so the process exits nonzero.
func (a *App) Validate(entryPath string) error {
	engine := service.NewEngine(a.Options)
	vr, err := engine.ValidateOnly(entryPath)
	if err != nil {
		return a.Errs.HandleError(err)
	}

	a.writeValidation(vr)
	if !vr.Valid {
		return a.Errs.HandleError(vr.ToAppError())
	}
	return nil
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return a.Errs.HandleError(apperrors.Wrap(err, apperrors.ErrCodeInternalError, "encoding output"))
	}
	return nil
}

func (a *App) writeValidation(vr *validation.ValidationResult) {
	if a.Format == "text" {
		if vr.Valid {
			fmt.Fprintf(a.Out, "OK: %d file(s) checked\n", len(vr.Checked))
		}
		for _, w := range vr.Warnings {
			fmt.Fprintf(a.Out, "warning: %s: %s\n", location(w), w.Message)
		}
		for _, e := range vr.Errors {
			fmt.Fprintf(a.Out, "error: %s: %s\n", location(e), e.Message)
		}
		return
	}
	_ = a.writeJSON(vr)
}

// writeText renders variations as a readable block per output, the
// format meant for eyeballing a template while editing it.
func (a *App) writeText(result *service.Result) {
	for _, v := range result.Variations {
		fmt.Fprintf(a.Out, "--- %d (seed %d)\n", v.Index, v.Seed)
		fmt.Fprintln(a.Out, v.FinalPrompt)
		if v.FinalNegativePrompt != "" {
			fmt.Fprintf(a.Out, "negative: %s\n", v.FinalNegativePrompt)
		}
		if len(v.Choices) > 0 {
			fmt.Fprintf(a.Out, "choices: %s\n", formatChoices(v.Choices))
		}
		fmt.Fprintln(a.Out)
	}
	fmt.Fprintf(a.Out, "%d variation(s)\n", len(result.Variations))
}

func location(e validation.ValidationError) string {
	if e.Field != "" {
		return e.File + ":" + e.Field
	}
	return e.File
}

func formatChoices(choices map[string]string) string {
	parts := make([]string, 0, len(choices))
	for name, key := range choices {
		parts = append(parts, name+"="+key)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
