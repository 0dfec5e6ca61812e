package gemini

import (
	"encoding/base64"

	"github.com/medreport/analyzer/internal/models"
)

// Fixed generation parameters sent with every analysis request.
const (
	Temperature     = 0.4
	MaxOutputTokens = 2048
)

// Prompt is the instruction sent ahead of every document. The literal
// "Accepted", "Rejected" and "Not Confirmed" wording is what the
// verification classifier later keys off.
const Prompt = "Analyze this medical document thoroughly. Provide a comprehensive yet concise medical report assessment including:" +
	"\n1. Document Type Identification" +
	"\n2. Comprehensive Key Findings" +
	"\n3. Detailed Abnormal Value Analysis" +
	"\n4. Specific Recommendations for Next Steps" +
	"\n5. Classification as 'Accepted', 'Rejected', or 'Not Confirmed' based on validity:" +
	"\n   - Accepted: If it is a valid medical report" +
	"\n   - Rejected: If it is not a valid medical report or not verified, then dont give any above detail just write something like not a medical report" +
	"\n   - Not Confirmed: If validity is indeterminate," +
	"\n\nNote: Provide professional, clear, and actionable insights."

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// generateResponse holds only the fields the client reads. Pointers let the
// decoder tell a missing field from an empty one.
type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// buildRequest assembles a fresh payload for one analysis attempt. The file is
// base64 encoded here, independently of the preview encoder.
func buildRequest(f *models.UploadedFile) *generateRequest {
	return &generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: Prompt},
				{InlineData: &inlineData{
					MimeType: f.MimeType,
					Data:     base64.StdEncoding.EncodeToString(f.Content),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:     Temperature,
			MaxOutputTokens: MaxOutputTokens,
		},
	}
}
