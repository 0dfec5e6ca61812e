package report

import (
	"strings"

	"github.com/medreport/analyzer/internal/models"
)

// Keywords the analysis prompt asks the model to emit.
const (
	KeywordAccepted = "Accepted"
	KeywordRejected = "Rejected"
)

var (
	Verified     = models.Verification{Status: models.VerificationVerified, Label: "Verified", Color: "green"}
	NotVerified  = models.Verification{Status: models.VerificationNotVerified, Label: "Not Verified", Color: "red"}
	NotConfirmed = models.Verification{Status: models.VerificationNotConfirmed, Label: "Not Confirmed", Color: "orange"}
)

// Classify derives the verification badge from analysis text. The search is
// case-sensitive and "Accepted" is checked before "Rejected", so text that
// contains both is Verified.
//
// This is a keyword heuristic: text explaining why a document was not
// rejected still contains "Rejected".
func Classify(text string) models.Verification {
	switch {
	case strings.Contains(text, KeywordAccepted):
		return Verified
	case strings.Contains(text, KeywordRejected):
		return NotVerified
	default:
		return NotConfirmed
	}
}
