package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/preview"
	"go.uber.org/zap"
)

// outbox queues bridge messages until the render surface polls for them
type outbox struct {
	mu   sync.Mutex
	msgs []preview.Message
}

func (o *outbox) Send(msg preview.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) drain() []preview.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.msgs
	o.msgs = nil
	if msgs == nil {
		msgs = []preview.Message{}
	}
	return msgs
}

type sessionEntry struct {
	session *preview.Session
	outbox  *outbox
}

type sessionCreated struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	if s.previews == nil {
		return failure(c, http.StatusServiceUnavailable, model.MsgPreviewFailed)
	}

	box := &outbox{}
	session := preview.NewSession(s.extractor, s.previews, preview.NewBridge(box), s.logger)
	s.sessions.SetDefault(session.ID, &sessionEntry{session: session, outbox: box})

	s.logger.Debug("session created", zap.String("session_id", session.ID))
	return success(c, http.StatusCreated, sessionCreated{ID: session.ID})
}

func (s *Server) handleSessionState(c echo.Context) error {
	entry, ok := s.lookupSession(c)
	if !ok {
		return failure(c, http.StatusNotFound, model.MsgSessionNotFound)
	}
	return success(c, http.StatusOK, entry.session.State())
}

func (s *Server) handleSessionUpdate(c echo.Context) error {
	entry, ok := s.lookupSession(c)
	if !ok {
		return failure(c, http.StatusNotFound, model.MsgSessionNotFound)
	}

	candidate, err := bindPartial(c)
	if err != nil {
		return failure(c, http.StatusBadRequest, model.MsgInvalidData)
	}
	return previewResponse(c, entry.session.Update(c.Request().Context(), candidate))
}

func (s *Server) handleSessionMerge(c echo.Context) error {
	entry, ok := s.lookupSession(c)
	if !ok {
		return failure(c, http.StatusNotFound, model.MsgSessionNotFound)
	}

	patch, err := bindPartial(c)
	if err != nil {
		return failure(c, http.StatusBadRequest, model.MsgInvalidData)
	}
	return previewResponse(c, entry.session.Merge(c.Request().Context(), patch))
}

func (s *Server) handleSessionTurn(c echo.Context) error {
	entry, ok := s.lookupSession(c)
	if !ok {
		return failure(c, http.StatusNotFound, model.MsgSessionNotFound)
	}

	transcript, ok := bindTranscript(c)
	if !ok {
		return failure(c, http.StatusBadRequest, model.MsgTranscriptMissing)
	}
	return previewResponse(c, entry.session.Turn(c.Request().Context(), transcript))
}

func (s *Server) handleSessionReset(c echo.Context) error {
	entry, ok := s.lookupSession(c)
	if !ok {
		return failure(c, http.StatusNotFound, model.MsgSessionNotFound)
	}

	if err := entry.session.Reset(c.Request().Context()); err != nil {
		return failure(c, http.StatusInternalServerError, model.MsgPreviewFailed)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if _, ok := s.lookupSession(c); !ok {
		return failure(c, http.StatusNotFound, model.MsgSessionNotFound)
	}
	s.sessions.Delete(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// handleSessionMessages returns and clears the messages queued for the render surface
func (s *Server) handleSessionMessages(c echo.Context) error {
	entry, ok := s.lookupSession(c)
	if !ok {
		return failure(c, http.StatusNotFound, model.MsgSessionNotFound)
	}
	return success(c, http.StatusOK, entry.outbox.drain())
}

// handleSessionResponse accepts READY, CONTENT_UPDATED or ERROR from the render surface
func (s *Server) handleSessionResponse(c echo.Context) error {
	entry, ok := s.lookupSession(c)
	if !ok {
		return failure(c, http.StatusNotFound, model.MsgSessionNotFound)
	}

	var msg preview.Message
	if err := json.NewDecoder(c.Request().Body).Decode(&msg); err != nil {
		return failure(c, http.StatusBadRequest, model.MsgInvalidData)
	}
	if err := entry.session.Bridge().Handle(msg); err != nil {
		return failure(c, http.StatusBadRequest, model.MsgInvalidData)
	}
	return c.NoContent(http.StatusNoContent)
}

// lookupSession finds the session named by :id and extends its lifetime
func (s *Server) lookupSession(c echo.Context) (*sessionEntry, bool) {
	id := c.Param("id")
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	entry := v.(*sessionEntry)
	s.sessions.SetDefault(id, entry)
	return entry, true
}

func previewResponse(c echo.Context, result preview.Result) error {
	if !result.Success {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}
