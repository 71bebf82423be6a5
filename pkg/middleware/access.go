package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hellyrj/smart-parking-system/pkg/logger"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader carries the correlation id in and out
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key for the correlation id
	RequestIDKey = "request_id"

	maxRequestIDLen = 64
)

// quietPaths are probe endpoints that would flood the access log
var quietPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// RequestID accepts a caller supplied X-Request-ID of sane length, or mints one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request's correlation id
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// AccessLogConfig tunes the access log
type AccessLogConfig struct {
	// SlowThreshold logs successful requests slower than this at warn. Zero disables.
	SlowThreshold time.Duration
}

// Logger writes one access log line per request with the default config
func Logger(log *logger.Logger) gin.HandlerFunc {
	return AccessLog(log, &AccessLogConfig{SlowThreshold: time.Second})
}

// AccessLog writes one line per request. Server errors log at error, client
// errors and slow requests at warn, everything else at info.
func AccessLog(log *logger.Logger, cfg *AccessLogConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = &AccessLogConfig{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if quietPaths[c.Request.URL.Path] {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		if userID, ok := GetUserID(c); ok {
			fields = append(fields, zap.String("user_id", userID))
		}
		if traceID := telemetry.TraceID(c.Request.Context()); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		case cfg.SlowThreshold > 0 && latency > cfg.SlowThreshold:
			log.Warn("Slow request", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}
