package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// ErrorOutput is the JSON shape of a failed command.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// Describe builds the detail of any error.
func Describe(err error) ErrorDetail {
	var we *caelerr.WalletError
	if errors.As(err, &we) {
		return ErrorDetail{
			Code:       we.Code,
			Message:    err.Error(),
			Details:    we.Details,
			Suggestion: we.Suggestion,
			ExitCode:   we.ExitCode,
		}
	}
	return ErrorDetail{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		ExitCode: caelerr.ExitGeneral,
	}
}

// FormatError writes err in format. The text message already carries the
// details; JSON also lists them separately.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	detail := Describe(err)
	if format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ErrorOutput{Error: detail})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", detail.Message)
	if detail.Suggestion != "" {
		fmt.Fprintf(&sb, "Suggestion: %s\n", detail.Suggestion)
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}
