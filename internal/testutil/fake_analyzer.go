// fake_analyzer.go - Controllable analysis requester for testing
package testutil

import (
	"context"
	"sync"

	"github.com/medreport/analyzer/internal/models"
)

// FakeAnalyzer returns a fixed text or error. When blocked, calls wait until
// Release is called, which lets tests hold a request in flight.
type FakeAnalyzer struct {
	mu      sync.Mutex
	text    string
	err     error
	gate    chan struct{}
	started chan struct{}
	files   []*models.UploadedFile
}

// NewFakeAnalyzer creates an analyzer that answers with text.
func NewFakeAnalyzer(text string) *FakeAnalyzer {
	return &FakeAnalyzer{text: text, started: make(chan struct{}, 16)}
}

// Fail makes subsequent calls return err.
func (f *FakeAnalyzer) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Block makes subsequent calls wait for Release.
func (f *FakeAnalyzer) Block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

// Release lets blocked calls finish.
func (f *FakeAnalyzer) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Started receives once per call, after the call has been recorded.
func (f *FakeAnalyzer) Started() <-chan struct{} {
	return f.started
}

// Calls returns how many requests were dispatched.
func (f *FakeAnalyzer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// Files returns the files each call was made with.
func (f *FakeAnalyzer) Files() []*models.UploadedFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.UploadedFile, len(f.files))
	copy(out, f.files)
	return out
}

// Analyze implements the analysis requester.
func (f *FakeAnalyzer) Analyze(ctx context.Context, file *models.UploadedFile) (string, error) {
	f.mu.Lock()
	f.files = append(f.files, file)
	gate, text, err := f.gate, f.text, f.err
	f.mu.Unlock()

	select {
	case f.started <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}
