package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/medreport/analyzer/internal/analysis"
	"github.com/medreport/analyzer/internal/intake"
	"github.com/medreport/analyzer/internal/lock"
	"github.com/medreport/analyzer/internal/models"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion
const MaxSessions = 100

// SessionMaxAge is how long to keep idle sessions before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned while an analysis request is outstanding.
	ErrBusy = errors.New("analysis already in progress")
	// ErrGateUnavailable is returned when the busy gate backend cannot be reached.
	ErrGateUnavailable = errors.New("analysis gate unavailable")
)

// Analyzer runs one document through the analysis stages.
type Analyzer interface {
	Run(ctx context.Context, f *models.UploadedFile) (*models.AnalysisResult, error)
}

// Options configures a Manager.
type Options struct {
	MaxSessions int
	Locker      lock.Locker // defaults to a MemoryLocker
	Logger      *slog.Logger
}

// Manager holds the state of every open analyzer session.
type Manager struct {
	sessions    map[string]*SessionState
	mu          sync.RWMutex
	analyzer    Analyzer
	locker      lock.Locker
	logger      *slog.Logger
	maxSessions int

	// Background work runs on ctx, which is only cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SessionState holds the session snapshot plus bookkeeping not exposed to clients.
type SessionState struct {
	Session      *models.AnalysisSession
	preview      string
	generation   uint64    // bumped on every selection; stale previews are dropped
	LastAccessed time.Time // Last time the session was accessed (for keep-alive)
}

// NewManager creates a session manager that analyzes documents with analyzer.
func NewManager(analyzer Analyzer, opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = MaxSessions
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewMemoryLocker()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions:    make(map[string]*SessionState),
		analyzer:    analyzer,
		locker:      opts.Locker,
		logger:      opts.Logger.With("component", "sessions"),
		maxSessions: opts.MaxSessions,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// CreateSession opens an empty session.
func (m *Manager) CreateSession() *models.AnalysisSession {
	m.evictIfNeeded()

	now := time.Now()
	state := &SessionState{
		Session: &models.AnalysisSession{
			ID:        uuid.New().String(),
			Status:    models.SessionStatusIdle,
			CreatedAt: now,
			UpdatedAt: now,
		},
		LastAccessed: now,
	}

	m.mu.Lock()
	m.sessions[state.Session.ID] = state
	m.mu.Unlock()

	m.logger.Debug("session created", "session", shortID(state.Session.ID))
	return snapshot(state.Session)
}

// GetSession returns a copy of the session's current state.
func (m *Manager) GetSession(id string) (*models.AnalysisSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return snapshot(state.Session), true
}

// TouchSession updates the LastAccessed timestamp for a session.
// This should be called whenever a session is actively being used
// to prevent it from being cleaned up.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// DeleteSession drops a session. An in-flight analysis still runs to
// completion but its result is discarded.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	m.logger.Debug("session deleted", "session", shortID(id))
	return true
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SelectFile validates a document and places it in the session's slot,
// replacing any previous one. On a validation failure the slot and preview
// are cleared and the *intake.ValidationError is returned. The preview is
// encoded in the background; see Preview.
func (m *Manager) SelectFile(id, name, mimeType string, content []byte) (*models.AnalysisSession, error) {
	return m.SelectUpload(id, name, mimeType, int64(len(content)), content)
}

// SelectUpload is SelectFile for a document whose content may have been
// truncated while reading. size is the full byte count received and is what
// the size limit is checked against.
func (m *Manager) SelectUpload(id, name, mimeType string, size int64, content []byte) (*models.AnalysisSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now()
	state.LastAccessed = now
	state.generation++
	state.preview = ""

	sess := state.Session
	sess.PreviewReady = false
	sess.UpdatedAt = now

	err := intake.Validate(mimeType, size)
	var file *models.UploadedFile
	if err == nil {
		file, err = intake.NewUploadedFile(name, mimeType, content)
	}
	if err != nil {
		sess.File = nil
		if !sess.Busy {
			sess.Status = models.SessionStatusIdle
		}
		m.logger.Info("file rejected", "session", shortID(id), "mime_type", mimeType, "size", size, "error", err)
		return nil, err
	}

	sess.File = file
	if !sess.Busy {
		sess.Status = models.SessionStatusReady
	}

	gen := state.generation
	go func() {
		for preview := range intake.EncodePreviewAsync(m.ctx, file) {
			m.storePreview(id, gen, preview)
		}
	}()

	m.logger.Info("file selected", "session", shortID(id), "file", name, "mime_type", mimeType, "size", file.Size)
	return snapshot(sess), nil
}

func (m *Manager) storePreview(id string, gen uint64, preview string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok || state.generation != gen {
		return
	}
	state.preview = preview
	state.Session.PreviewReady = preview != ""
}

// Preview returns the data URI of the selected file. Ready is false while
// encoding is still running or when nothing is selected.
func (m *Manager) Preview(id string) (*models.Preview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	p := &models.Preview{
		DataURI: state.preview,
		Ready:   state.Session.PreviewReady,
	}
	if state.Session.File != nil {
		p.MimeType = state.Session.File.MimeType
	}
	return p, nil
}

// StartAnalysis submits the selected file for analysis in the background.
// The file is captured now, so later selections do not affect the request.
// It returns ErrBusy while a previous request is outstanding,
// analysis.ErrNoFile when the slot is empty and ErrGateUnavailable when the
// gate backend fails.
func (m *Manager) StartAnalysis(ctx context.Context, id string) (*models.AnalysisSession, error) {
	m.mu.RLock()
	_, err := m.dispatchable(id)
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	key := lockKey(id)
	token, acquired, err := m.locker.TryAcquire(ctx, key)
	if err != nil {
		m.logger.Error("busy gate unavailable", "session", shortID(id), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGateUnavailable, err)
	}
	if !acquired {
		return nil, ErrBusy
	}

	m.mu.Lock()
	state, err := m.dispatchable(id)
	if err != nil {
		m.mu.Unlock()
		m.release(key, token)
		return nil, err
	}

	file := state.Session.File
	now := time.Now()
	state.LastAccessed = now
	sess := state.Session
	sess.Busy = true
	sess.Status = models.SessionStatusAnalyzing
	sess.Error = nil
	sess.UpdatedAt = now
	out := snapshot(sess)
	m.mu.Unlock()

	m.wg.Add(1)
	go m.runAnalysis(id, file, token)

	m.logger.Info("analysis started", "session", shortID(id), "file", file.Name)
	return out, nil
}

// dispatchable checks that a session can take a new submission.
// The busy flag is authoritative even if the gate key has expired.
// Callers must hold m.mu.
func (m *Manager) dispatchable(id string) (*SessionState, error) {
	state, ok := m.sessions[id]
	switch {
	case !ok:
		return nil, ErrNotFound
	case state.Session.Busy:
		return nil, ErrBusy
	case state.Session.File == nil:
		return nil, analysis.ErrNoFile
	}
	return state, nil
}

func (m *Manager) runAnalysis(id string, file *models.UploadedFile, token string) {
	defer m.wg.Done()

	var (
		result *models.AnalysisResult
		err    error
	)

	// The busy flag must clear whatever happens inside the pipeline.
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("analysis panicked", "session", shortID(id), "panic", r)
			result, err = nil, fmt.Errorf("analysis panicked: %v", r)
		}
		m.settle(id, token, result, err)
	}()

	result, err = m.analyzer.Run(m.ctx, file)
}

// settle releases the gate, then records the outcome and clears the busy
// flag. While the flag is still set new submissions get ErrBusy, so by the
// time a client observes busy=false the gate is already free.
func (m *Manager) settle(id, token string, result *models.AnalysisResult, err error) {
	m.release(lockKey(id), token)

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return
	}

	sess := state.Session
	sess.Busy = false
	sess.UpdatedAt = time.Now()

	if err != nil {
		sess.Result = nil
		sess.Error = analysis.Describe(err)
		sess.Status = models.SessionStatusError
		m.logger.Warn("analysis failed", "session", shortID(id), "kind", sess.Error.Kind, "error", err)
		return
	}

	sess.Result = result
	sess.Error = nil
	sess.Status = models.SessionStatusComplete
}

func (m *Manager) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.locker.Release(ctx, key, token); err != nil {
		m.logger.Error("failed to release analysis gate", "key", key, "error", err)
	}
}

// evictIfNeeded removes the least recently used idle sessions if at capacity.
// Sessions with an outstanding request are never evicted.
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.maxSessions {
		return
	}

	candidates := make([]*SessionState, 0, len(m.sessions))
	for _, state := range m.sessions {
		if !state.Session.Busy {
			candidates = append(candidates, state)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	toFree := len(m.sessions) - m.maxSessions + 1
	for i := 0; i < toFree && i < len(candidates); i++ {
		id := candidates[i].Session.ID
		delete(m.sessions, id)
		m.logger.Info("evicted session to stay under capacity", "session", shortID(id))
	}
}

// CleanupOldSessions removes sessions not accessed within maxAge,
// but keeps sessions that have been accessed within SessionKeepAliveWindow
// and sessions with an outstanding request.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if state.Session.Busy {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			m.logger.Info("cleaned up aged session", "session", shortID(id),
				"idle", now.Sub(state.LastAccessed).Round(time.Second))
		}
	}
	return removed
}

// Shutdown cancels outstanding analyses and waits for them to settle.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func lockKey(id string) string {
	return "analyze:" + id
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// snapshot copies a session so callers never share the manager's state.
func snapshot(s *models.AnalysisSession) *models.AnalysisSession {
	out := *s
	if s.File != nil {
		f := *s.File
		out.File = &f
	}
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return &out
}
