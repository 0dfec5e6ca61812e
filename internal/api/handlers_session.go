// handlers_session.go - Analyzer session handlers: file selection, preview, analysis
package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/medreport/analyzer/internal/intake"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is the content type of msgpack session snapshots.
const MIMEApplicationMsgpack = "application/msgpack"

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr SessionManager
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessionMgr SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessionMgr: sessionMgr}
}

// HandleCreateSession opens an empty session
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	return c.JSON(http.StatusCreated, h.sessionMgr.CreateSession())
}

// HandleGetSession returns the current session snapshot, as msgpack when the
// client asks for it
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack) {
		data, err := msgpack.Marshal(sess)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}

	return c.JSON(http.StatusOK, sess)
}

// HandleDeleteSession drops a session
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if !h.sessionMgr.DeleteSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleSelectFile places the uploaded document in the session's slot.
// A rejected document clears the slot and answers 400 VALIDATION_ERROR.
func (h *SessionHandlerImpl) HandleSelectFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	reader, err := c.Request().MultipartReader()
	if err != nil {
		return NewValidationError("file")
	}

	var part *multipart.Part
	for {
		p, err := reader.NextPart()
		if err != nil {
			return NewValidationError("file")
		}
		if p.FormName() == "file" {
			part = p
			break
		}
		p.Close()
	}
	defer part.Close()

	// Keep one byte past the limit and count the rest, so an oversized
	// upload is rejected with its real size.
	content, err := io.ReadAll(io.LimitReader(part, intake.MaxFileSize+1))
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}
	size := int64(len(content))
	if size > intake.MaxFileSize {
		rest, err := io.Copy(io.Discard, part)
		if err != nil {
			return NewInternalError("failed to read uploaded file", err)
		}
		size += rest
	}

	mimeType := intake.DeclaredType(part.Header.Get(echo.HeaderContentType), content)

	sess, err := h.sessionMgr.SelectUpload(id, part.FileName(), mimeType, size, content)
	if err != nil {
		return sessionError(err, id)
	}

	return c.JSON(http.StatusOK, sess)
}

// HandleGetPreview returns the selected file's data URI
func (h *SessionHandlerImpl) HandleGetPreview(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	preview, err := h.sessionMgr.Preview(id)
	if err != nil {
		return sessionError(err, id)
	}

	return c.JSON(http.StatusOK, preview)
}

// HandleStartAnalysis submits the selected file for analysis. The result is
// picked up by polling HandleGetSession.
func (h *SessionHandlerImpl) HandleStartAnalysis(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, err := h.sessionMgr.StartAnalysis(c.Request().Context(), id)
	if err != nil {
		return sessionError(err, id)
	}

	return c.JSON(http.StatusAccepted, sess)
}
