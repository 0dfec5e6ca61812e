package models

// VerificationStatus is the tri-state badge derived from analysis text.
type VerificationStatus string

const (
	VerificationVerified     VerificationStatus = "verified"
	VerificationNotVerified  VerificationStatus = "not_verified"
	VerificationNotConfirmed VerificationStatus = "not_confirmed"
)

// Verification pairs a status with its display label and badge color.
type Verification struct {
	Status VerificationStatus `json:"status" msgpack:"status"`
	Label  string             `json:"label" msgpack:"label"`
	Color  string             `json:"color" msgpack:"color"`
}

// AnalysisResult is the interpreted response of the analysis service.
type AnalysisResult struct {
	Text         string       `json:"text" msgpack:"text"`                   // Verbatim service output
	HTML         string       `json:"html" msgpack:"html"`                   // Rendering-safe markup
	Verification Verification `json:"verification" msgpack:"verification"`
	DurationMs   int64        `json:"durationMs" msgpack:"durationMs"`
}

// AnalysisErrorKind distinguishes the failure classes of an analysis attempt.
type AnalysisErrorKind string

const (
	AnalysisErrorTransport AnalysisErrorKind = "transport"
	AnalysisErrorFormat    AnalysisErrorKind = "format"
	AnalysisErrorInternal  AnalysisErrorKind = "internal"
)

// AnalysisError is the user-visible record of a failed analysis attempt.
type AnalysisError struct {
	Kind       AnalysisErrorKind `json:"kind" msgpack:"kind"`
	Message    string            `json:"message" msgpack:"message"`
	StatusCode int               `json:"statusCode,omitempty" msgpack:"statusCode,omitempty"`
	Body       string            `json:"body,omitempty" msgpack:"body,omitempty"`
}
