package analysis

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/medreport/analyzer/internal/gemini"
	"github.com/medreport/analyzer/internal/models"
	"github.com/medreport/analyzer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfFile() *models.UploadedFile {
	data := testutil.PDFBytes()
	return &models.UploadedFile{Name: "labs.pdf", MimeType: "application/pdf", Size: int64(len(data)), Content: data}
}

func TestPipeline_Run(t *testing.T) {
	fake := testutil.NewFakeAnalyzer("**Type** Blood panel\n* Hemoglobin low\nClassification: Accepted")
	p := NewPipeline(fake, nil)

	result, err := p.Run(context.Background(), pdfFile())
	require.NoError(t, err)

	assert.Equal(t, "**Type** Blood panel\n* Hemoglobin low\nClassification: Accepted", result.Text)
	assert.Contains(t, result.HTML, "<br><br><strong>Type</strong>")
	assert.Contains(t, result.HTML, "<br>Hemoglobin low")
	assert.Equal(t, models.VerificationVerified, result.Verification.Status)
	assert.Equal(t, "green", result.Verification.Color)
	assert.Equal(t, 1, fake.Calls())
}

func TestPipeline_Run_NoFile(t *testing.T) {
	fake := testutil.NewFakeAnalyzer("Accepted")
	p := NewPipeline(fake, nil)

	result, err := p.Run(context.Background(), nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Zero(t, fake.Calls())
}

func TestPipeline_Run_PropagatesTypedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind models.AnalysisErrorKind
	}{
		{
			name:     "transport",
			err:      &gemini.TransportError{StatusCode: http.StatusBadGateway, Body: "upstream down"},
			wantKind: models.AnalysisErrorTransport,
		},
		{
			name:     "format",
			err:      &gemini.FormatError{Reason: "no candidates"},
			wantKind: models.AnalysisErrorFormat,
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			wantKind: models.AnalysisErrorInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeAnalyzer("")
			fake.Fail(tt.err)
			p := NewPipeline(fake, nil)

			result, err := p.Run(context.Background(), pdfFile())
			assert.Nil(t, result)
			require.ErrorIs(t, err, tt.err)

			desc := Describe(err)
			require.NotNil(t, desc)
			assert.Equal(t, tt.wantKind, desc.Kind)
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Nil(t, Describe(nil))

	transport := Describe(&gemini.TransportError{StatusCode: 429, Body: "quota"})
	assert.Equal(t, 429, transport.StatusCode)
	assert.Equal(t, "quota", transport.Body)
	assert.Equal(t, "Analysis error: API responded with 429: quota", transport.Message)

	format := Describe(&gemini.FormatError{Reason: "no candidates"})
	assert.Equal(t, formatErrorMessage, format.Message)
	assert.Zero(t, format.StatusCode)
}

func TestPipeline_EndToEndWithClient(t *testing.T) {
	srv := testutil.NewAnalysisServer(t)
	srv.Respond(http.StatusOK, testutil.SuccessBody("This is Rejected as not a medical report"))

	client, err := gemini.NewClient(gemini.Config{Endpoint: srv.URL, APIKey: "k"}, nil)
	require.NoError(t, err)

	result, err := NewPipeline(client, nil).Run(context.Background(), pdfFile())
	require.NoError(t, err)
	assert.Equal(t, models.VerificationNotVerified, result.Verification.Status)
	assert.Equal(t, "red", result.Verification.Color)
}
