package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents logging severity levels
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns string representation of log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string to a LogLevel. Unknown values map
// to INFO.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// StructuredLogger writes JSON log lines through zap
type StructuredLogger struct {
	zl     *zap.Logger
	level  LogLevel
	closer io.Closer
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level        LogLevel
	Service      string
	Version      string
	Environment  string
	OutputPath   string
	EnableCaller bool

	// Writer, when set, takes precedence over OutputPath.
	Writer io.Writer
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(config LoggerConfig) (*StructuredLogger, error) {
	var (
		output io.Writer
		closer io.Closer
	)

	switch {
	case config.Writer != nil:
		output = config.Writer
	case config.OutputPath == "" || config.OutputPath == "stdout":
		output = os.Stdout
	case config.OutputPath == "stderr":
		output = os.Stderr
	default:
		// Ensure log directory exists
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output, closer = file, file
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "caller"
	encoderConfig.StacktraceKey = ""
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(output),
		config.Level.zapLevel(),
	)

	var opts []zap.Option
	if config.EnableCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(2))
	}

	zl := zap.New(core, opts...).With(
		zap.String("service", config.Service),
		zap.String("version", config.Version),
		zap.String("environment", config.Environment),
	)

	return &StructuredLogger{
		zl:     zl,
		level:  config.Level,
		closer: closer,
	}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *StructuredLogger {
	return &StructuredLogger{zl: zap.NewNop(), level: FATAL}
}

// log writes a structured log entry
func (sl *StructuredLogger) log(level LogLevel, message string, fields map[string]interface{}) {
	if level < sl.level {
		return
	}

	zapFields := toZapFields(fields)
	switch level {
	case DEBUG:
		sl.zl.Debug(message, zapFields...)
	case INFO:
		sl.zl.Info(message, zapFields...)
	case WARN:
		sl.zl.Warn(message, zapFields...)
	case ERROR:
		sl.zl.Error(message, zapFields...)
	case FATAL:
		sl.zl.Fatal(message, zapFields...)
	}
}

// Debug logs debug messages
func (sl *StructuredLogger) Debug(message string, fields ...map[string]interface{}) {
	sl.log(DEBUG, message, mergeFields(fields...))
}

// Info logs info messages
func (sl *StructuredLogger) Info(message string, fields ...map[string]interface{}) {
	sl.log(INFO, message, mergeFields(fields...))
}

// Warn logs warning messages
func (sl *StructuredLogger) Warn(message string, fields ...map[string]interface{}) {
	sl.log(WARN, message, mergeFields(fields...))
}

// Error logs error messages
func (sl *StructuredLogger) Error(message string, err error, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	if err != nil {
		logFields["error"] = err.Error()
	}
	sl.log(ERROR, message, logFields)
}

// Fatal logs fatal messages and exits
func (sl *StructuredLogger) Fatal(message string, err error, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	if err != nil {
		logFields["error"] = err.Error()
	}
	sl.log(FATAL, message, logFields)
	os.Exit(1)
}

// LogRequest logs HTTP request details
func (sl *StructuredLogger) LogRequest(c *gin.Context, duration time.Duration, fields ...map[string]interface{}) {
	if INFO < sl.level {
		return
	}

	zapFields := append(toZapFields(mergeFields(fields...)),
		zap.String("request_id", getRequestID(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status_code", c.Writer.Status()),
		zap.String("duration", duration.String()),
		zap.String("ip", c.ClientIP()),
		zap.String("user_agent", c.GetHeader("User-Agent")),
	)

	sl.zl.Info("HTTP Request", zapFields...)
}

// LogScanEvent logs scan session events
func (sl *StructuredLogger) LogScanEvent(event string, sessionID string, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	logFields["component"] = "scan"
	if sessionID != "" {
		logFields["session_id"] = sessionID
	}

	sl.log(INFO, event, logFields)
}

// LogSystemEvent logs system-level events
func (sl *StructuredLogger) LogSystemEvent(event string, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	logFields["component"] = "system"

	sl.log(INFO, event, logFields)
}

// WithContext returns a context-aware logger
func (sl *StructuredLogger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger: sl,
		ctx:    ctx,
	}
}

// WithRequestContext returns a request-aware logger
func (sl *StructuredLogger) WithRequestContext(c *gin.Context) *RequestLogger {
	return &RequestLogger{
		logger: sl,
		ctx:    c,
	}
}

// Sync flushes buffered log entries.
func (sl *StructuredLogger) Sync() error {
	return sl.zl.Sync()
}

// Close closes the logger output
func (sl *StructuredLogger) Close() error {
	_ = sl.zl.Sync()
	if sl.closer != nil {
		return sl.closer.Close()
	}
	return nil
}

// toZapFields converts a field map to zap fields in a stable key order.
func toZapFields(fields map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// mergeFields merges multiple field maps
func mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}

// getRequestID extracts or generates request ID
func getRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.NewString()
}

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger *StructuredLogger
	ctx    context.Context
}

// Debug logs debug with context
func (cl *ContextLogger) Debug(message string, fields ...map[string]interface{}) {
	cl.logger.Debug(message, fields...)
}

// Info logs info with context
func (cl *ContextLogger) Info(message string, fields ...map[string]interface{}) {
	cl.logger.Info(message, fields...)
}

// Warn logs warning with context
func (cl *ContextLogger) Warn(message string, fields ...map[string]interface{}) {
	cl.logger.Warn(message, fields...)
}

// Error logs error with context
func (cl *ContextLogger) Error(message string, err error, fields ...map[string]interface{}) {
	if ctxErr := cl.ctx.Err(); ctxErr != nil {
		fields = append(fields, map[string]interface{}{"context_error": ctxErr.Error()})
	}
	cl.logger.Error(message, err, fields...)
}

// RequestLogger provides request-aware logging
type RequestLogger struct {
	logger *StructuredLogger
	ctx    *gin.Context
}

// Debug logs debug with request context
func (rl *RequestLogger) Debug(message string, fields ...map[string]interface{}) {
	rl.logger.Debug(message, rl.enrichWithRequestContext(fields...))
}

// Info logs info with request context
func (rl *RequestLogger) Info(message string, fields ...map[string]interface{}) {
	rl.logger.Info(message, rl.enrichWithRequestContext(fields...))
}

// Warn logs warning with request context
func (rl *RequestLogger) Warn(message string, fields ...map[string]interface{}) {
	rl.logger.Warn(message, rl.enrichWithRequestContext(fields...))
}

// Error logs error with request context
func (rl *RequestLogger) Error(message string, err error, fields ...map[string]interface{}) {
	rl.logger.Error(message, err, rl.enrichWithRequestContext(fields...))
}

// enrichWithRequestContext adds request context to fields
func (rl *RequestLogger) enrichWithRequestContext(fields ...map[string]interface{}) map[string]interface{} {
	enriched := mergeFields(fields...)
	enriched["request_id"] = getRequestID(rl.ctx)
	enriched["method"] = rl.ctx.Request.Method
	enriched["path"] = rl.ctx.Request.URL.Path
	enriched["ip"] = rl.ctx.ClientIP()
	return enriched
}

// LoggingMiddleware provides request logging middleware
func (sl *StructuredLogger) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// Skip logging for health checks and static files
		if path == "/health" || strings.HasPrefix(path, "/static/") {
			c.Next()
			return
		}

		// Generate request ID if not present
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		// Process request
		c.Next()

		fields := map[string]interface{}{
			"bytes_in":  c.Request.ContentLength,
			"bytes_out": c.Writer.Size(),
		}
		if raw := c.Request.URL.RawQuery; raw != "" {
			fields["query"] = raw
		}

		// Add error information if present
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		sl.LogRequest(c, time.Since(start), fields)
	}
}

// Global logger instance
var GlobalLogger *StructuredLogger

// InitializeLogger initializes the global logger
func InitializeLogger(config LoggerConfig) error {
	var err error
	GlobalLogger, err = NewStructuredLogger(config)
	return err
}

// Default returns the global logger, or a no-op logger when none was
// initialised.
func Default() *StructuredLogger {
	if GlobalLogger != nil {
		return GlobalLogger
	}
	return NewNopLogger()
}
