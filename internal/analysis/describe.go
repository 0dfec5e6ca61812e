package analysis

import (
	"errors"

	"github.com/medreport/analyzer/internal/gemini"
	"github.com/medreport/analyzer/internal/models"
)

// formatErrorMessage is shown for every format failure; the pipeline logs the detail.
const formatErrorMessage = "Analysis error: Unexpected API response format"

// Describe converts a failed run into the record shown to the user.
func Describe(err error) *models.AnalysisError {
	if err == nil {
		return nil
	}

	var terr *gemini.TransportError
	if errors.As(err, &terr) {
		return &models.AnalysisError{
			Kind:       models.AnalysisErrorTransport,
			Message:    "Analysis error: " + terr.Error(),
			StatusCode: terr.StatusCode,
			Body:       terr.Body,
		}
	}

	var ferr *gemini.FormatError
	if errors.As(err, &ferr) {
		return &models.AnalysisError{
			Kind:    models.AnalysisErrorFormat,
			Message: formatErrorMessage,
		}
	}

	return &models.AnalysisError{
		Kind:    models.AnalysisErrorInternal,
		Message: "Analysis error: " + err.Error(),
	}
}
