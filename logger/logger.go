package logger

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: a console logger in development, JSON
// otherwise.
func New(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewTerminal builds the same loggers as New but writes to w, which lets the
// operator console adjust line endings while stdin is in raw mode.
func NewTerminal(development bool, w io.Writer) *zap.Logger {
	sink := zapcore.Lock(zapcore.AddSync(w))

	if development {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core := zapcore.NewCore(enc, sink, zap.DebugLevel)
		return zap.New(core, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zap.WarnLevel), zap.ErrorOutput(sink))
	}

	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewSamplerWithOptions(zapcore.NewCore(enc, sink, zap.InfoLevel), time.Second, 100, 100)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel), zap.ErrorOutput(sink))
}

// RequestLogger is gin middleware that logs every request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
		)
	}
}
