package httpserver

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mediaplayer/internal/media"
)

// requestIDKey is the gin context key holding the per-request ID.
const requestIDKey = "request_id"

// ZapLogger adapts a zap SugaredLogger to the media.Logger interface.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger creates a production-configured ZapLogger.
func NewZapLogger() (*ZapLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return &ZapLogger{s: l.Sugar()}, nil
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(l *zap.Logger) *ZapLogger {
	return &ZapLogger{s: l.Sugar()}
}

func (l *ZapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error { return l.s.Sync() }

var _ media.Logger = (*ZapLogger)(nil)

// requestLog tags each request with a uuid and logs one line on
// completion.
func requestLog(log media.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(requestIDKey, uuid.NewString())
		c.Next()
		log.Info("request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// securityHeaders sets baseline response hardening headers.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
