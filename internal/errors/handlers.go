// Package errors/handlers provides interface-specific error handling
// implementations.
//
// SYSTEM ARCHITECTURE ROLE:
// This module implements the presentation layer of the error handling
// system: it turns structured AppErrors into terminal output for the CLI
// and into stable JSON for machine consumers.
//
// INTEGRATION POINTS:
// - internal/cli: CLI commands format fatal errors through CLIErrorHandler
// - os.Stderr: console error output destination
package errors

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for terminal display
type CLIErrorHandler struct {
	Verbose bool

	critical lipgloss.Style
	errStyle lipgloss.Style
	warning  lipgloss.Style
	info     lipgloss.Style
	details  lipgloss.Style
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose:  verbose,
		critical: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		errStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		info:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		details:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// HandleError logs the error when verbose and returns a display-ready error
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose {
		log.Debug().
			Str("code", string(appErr.Code)).
			Str("severity", string(appErr.Severity)).
			AnErr("cause", appErr.Cause).
			Msg(appErr.Message)
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for terminal display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	var line string
	switch appErr.Severity {
	case SeverityCritical:
		line = h.critical.Render(fmt.Sprintf("CRITICAL [%s]", appErr.Code)) + " " + appErr.Message
	case SeverityError:
		line = h.errStyle.Render(fmt.Sprintf("ERROR [%s]", appErr.Code)) + " " + appErr.Message
	case SeverityWarning:
		line = h.warning.Render(fmt.Sprintf("WARNING [%s]", appErr.Code)) + " " + appErr.Message
	case SeverityInfo:
		line = h.info.Render("INFO") + " " + appErr.Message
	default:
		line = appErr.Message
	}

	if appErr.Details != "" {
		line += "\n  " + h.details.Render(appErr.Details)
	}
	if h.Verbose && appErr.Cause != nil {
		line += "\n  " + h.details.Render(fmt.Sprintf("caused by: %v", appErr.Cause))
	}
	return line
}

// JSONErrorHandler renders errors as single-line JSON objects for
// machine consumption.
type JSONErrorHandler struct{}

// HandleError returns the error formatted as JSON
func (h *JSONErrorHandler) HandleError(err error) error {
	return fmt.Errorf("%s", h.FormatError(err))
}

// FormatError marshals the AppError, falling back to a minimal object if
// some context value resists serialization
func (h *JSONErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)
	data, merr := json.Marshal(appErr)
	if merr != nil {
		return fmt.Sprintf(`{"code":%q,"message":%q}`, appErr.Code, appErr.Message)
	}
	return string(data)
}
