package models

import "time"

// SessionStatus represents the state of an analyzer session.
type SessionStatus string

const (
	SessionStatusIdle      SessionStatus = "idle"      // no file selected
	SessionStatusReady     SessionStatus = "ready"     // file accepted, not analyzed yet
	SessionStatusAnalyzing SessionStatus = "analyzing" // request outstanding
	SessionStatusComplete  SessionStatus = "complete"
	SessionStatusError     SessionStatus = "error"
)

// AnalysisSession is a point-in-time snapshot of one widget session.
// Snapshots are copies; mutating one never affects the manager's state.
type AnalysisSession struct {
	ID           string          `json:"id" msgpack:"id"`
	Status       SessionStatus   `json:"status" msgpack:"status"`
	Busy         bool            `json:"busy" msgpack:"busy"`
	File         *UploadedFile   `json:"file,omitempty" msgpack:"file,omitempty"`
	PreviewReady bool            `json:"previewReady" msgpack:"previewReady"`
	Result       *AnalysisResult `json:"result,omitempty" msgpack:"result,omitempty"`
	Error        *AnalysisError  `json:"error,omitempty" msgpack:"error,omitempty"`
	CreatedAt    time.Time       `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt" msgpack:"updatedAt"`
}

// Preview is the data URI rendering of the selected file.
type Preview struct {
	MimeType string `json:"mimeType"`
	DataURI  string `json:"dataUri"`
	Ready    bool   `json:"ready"`
}
