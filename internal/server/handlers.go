package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ppiankov/instaweb/internal/metrics"
	"github.com/ppiankov/instaweb/internal/model"
	"go.uber.org/zap"
)

type extractRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(c echo.Context) error {
	transcript, ok := bindTranscript(c)
	if !ok {
		return failure(c, http.StatusBadRequest, model.MsgTranscriptMissing)
	}

	log := s.logger.With(zap.String("request_id", RequestIDFromContext(c)))

	if s.extractor == nil {
		log.Error("extraction requested but no completion provider is configured")
		metrics.ExtractionsTotal.WithLabelValues("remote", metrics.OutcomeFailure).Inc()
		return failure(c, http.StatusInternalServerError, model.MsgExtractFailed)
	}

	start := time.Now()
	rec, err := s.extractor.Extract(c.Request().Context(), transcript)
	metrics.ExtractionDuration.WithLabelValues("remote").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("remote", metrics.OutcomeFailure).Inc()
		status := StatusFor(err)
		log.Warn("extraction failed", zap.Int("status", status), zap.String("kind", model.KindOf(err)), zap.Error(err))
		return failure(c, status, messageFor(status, err))
	}

	metrics.ExtractionsTotal.WithLabelValues("remote", metrics.OutcomeSuccess).Inc()
	return success(c, http.StatusOK, rec)
}

func (s *Server) handleExtractLocal(c echo.Context) error {
	transcript, ok := bindTranscript(c)
	if !ok {
		return failure(c, http.StatusBadRequest, model.MsgTranscriptMissing)
	}

	partial, err := s.local.Extract(transcript)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("local", metrics.OutcomeFailure).Inc()
		return failure(c, http.StatusUnprocessableEntity, model.UserMessage(err))
	}

	metrics.ExtractionsTotal.WithLabelValues("local", metrics.OutcomeSuccess).Inc()
	return success(c, http.StatusOK, partial)
}

func (s *Server) handlePreview(c echo.Context) error {
	if s.previews == nil {
		return failure(c, http.StatusServiceUnavailable, model.MsgPreviewFailed)
	}

	candidate, err := bindPartial(c)
	if err != nil {
		return failure(c, http.StatusBadRequest, model.MsgInvalidData)
	}

	result := s.previews.GeneratePreview(c.Request().Context(), candidate)
	if !result.Success {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleInvalidateTemplate(c echo.Context) error {
	if s.previews == nil {
		return failure(c, http.StatusServiceUnavailable, model.MsgPreviewFailed)
	}

	if err := s.previews.Templates().Invalidate(); err != nil {
		s.logger.Warn("template cache invalidation failed", zap.Error(err))
		return failure(c, http.StatusInternalServerError, model.MsgTemplateLoad)
	}
	s.logger.Info("template cache invalidated", zap.String("source", s.previews.Templates().Source()))
	return c.NoContent(http.StatusNoContent)
}

// bindTranscript reads {"transcript": "..."}; ok is false when it is missing or blank
func bindTranscript(c echo.Context) (string, bool) {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	transcript := strings.TrimSpace(req.Transcript)
	return transcript, transcript != ""
}

// bindPartial decodes a JSON object body
func bindPartial(c echo.Context) (model.Partial, error) {
	var partial model.Partial
	if err := json.NewDecoder(c.Request().Body).Decode(&partial); err != nil {
		return nil, err
	}
	if partial == nil {
		return nil, errors.New("body is not a JSON object")
	}
	return partial, nil
}
