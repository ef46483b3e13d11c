package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/ppiankov/instaweb/internal/metrics"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/worker"
	"go.uber.org/zap"
)

const (
	headerRequestID   = "X-Request-ID"
	contextRequestID  = "request_id"
	unmatchedRouteTag = "unmatched"
)

// RequestID injects an identifier for traceability if the caller did not provide one
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(headerRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}

			c.Set(contextRequestID, rid)
			c.Response().Header().Set(headerRequestID, rid)

			return next(c)
		}
	}
}

// RequestIDFromContext extracts the request identifier if available
func RequestIDFromContext(c echo.Context) string {
	if val, ok := c.Get(contextRequestID).(string); ok {
		return val
	}
	return ""
}

// AccessLog writes one structured line per request and counts it
func AccessLog(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = unmatchedRouteTag
			}
			status := c.Response().Status
			metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()

			logger.Info("request",
				zap.String("request_id", RequestIDFromContext(c)),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
			)

			return err
		}
	}
}

// RateLimit applies a per-client token bucket. A nil limiter passes everything through.
func RateLimit(limiter *worker.Limiter) echo.MiddlewareFunc {
	if limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if limiter.Allow(key) {
				return next(c)
			}

			metrics.RateLimitedTotal.WithLabelValues(c.Path()).Inc()
			wait := limiter.RetryAfter(key)
			c.Response().Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(wait.Seconds())))))
			return failure(c, http.StatusTooManyRequests, model.MsgServerBusy)
		}
	}
}
