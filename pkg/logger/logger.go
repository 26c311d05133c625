package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with the seat and reconciliation log vocabulary.
type Logger struct {
	*slog.Logger
}

// New builds the process logger. LOG_LEVEL selects the level; gin debug mode selects
// the text handler and every other mode selects JSON.
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewWithWriter builds a JSON logger writing to w. Used by tools and tests.
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError+1)
}

func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("request_id", requestID))}
}

func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("component", component))}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("error", err.Error()))}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// HTTP logging methods

func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("request_id", c.GetString("request_id")),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("request_id", c.GetString("request_id")),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
	)
}

// Seat ledger logging methods

// LogSeatTransition records a successful ledger state change such as held, released or sold.
func (l *Logger) LogSeatTransition(ctx context.Context, transition, sessionID, seatCode, cartID string, version int64) {
	l.Logger.InfoContext(ctx,
		"Seat "+transition,
		slog.String("session_id", sessionID),
		slog.String("seat_code", seatCode),
		slog.String("cart_id", cartID),
		slog.Int64("version", version),
	)
}

// LogSeatConflict records a lost compare-and-swap. These are business outcomes, not failures.
func (l *Logger) LogSeatConflict(ctx context.Context, operation, sessionID, seatCode, cartID string, err error) {
	l.Logger.InfoContext(ctx,
		"Seat Conflict",
		slog.String("operation", operation),
		slog.String("session_id", sessionID),
		slog.String("seat_code", seatCode),
		slog.String("cart_id", cartID),
		slog.String("reason", err.Error()),
	)
}

func (l *Logger) LogHoldsSwept(ctx context.Context, released int64, duration time.Duration) {
	l.Logger.InfoContext(ctx,
		"Expired Holds Swept",
		slog.Int64("released", released),
		slog.Duration("duration", duration),
	)
}

// Checkout logging methods

func (l *Logger) LogCartConfirmed(ctx context.Context, cartID string, seats int, totalCents int64) {
	l.Logger.InfoContext(ctx,
		"Cart Confirmed",
		slog.String("cart_id", cartID),
		slog.Int("seats", seats),
		slog.Int64("total_cents", totalCents),
	)
}

func (l *Logger) LogCartCancelled(ctx context.Context, cartID string, released int) {
	l.Logger.InfoContext(ctx,
		"Cart Cancelled",
		slog.String("cart_id", cartID),
		slog.Int("released", released),
	)
}

func (l *Logger) LogPaymentEvent(ctx context.Context, eventType, cartID, paymentID string) {
	l.Logger.InfoContext(ctx,
		"Payment Event",
		slog.String("type", eventType),
		slog.String("cart_id", cartID),
		slog.String("payment_id", paymentID),
	)
}

// Reconciliation logging methods

func (l *Logger) LogReconcileSession(ctx context.Context, sessionID string, attrs ...slog.Attr) {
	args := make([]interface{}, 0, len(attrs)+1)
	args = append(args, slog.String("session_id", sessionID))
	for _, a := range attrs {
		args = append(args, a)
	}
	l.Logger.InfoContext(ctx, "Session Reconciled", args...)
}

func (l *Logger) LogReconcileRetry(ctx context.Context, sessionID string, attempt int, backoff time.Duration, err error) {
	l.Logger.WarnContext(ctx,
		"Reconcile Serialization Conflict",
		slog.String("session_id", sessionID),
		slog.Int("attempt", attempt),
		slog.Duration("backoff", backoff),
		slog.String("error", err.Error()),
	)
}

func (l *Logger) LogReconcileFallback(ctx context.Context, sessionID, policy string) {
	l.Logger.WarnContext(ctx,
		"Reconcile Running Without Transaction",
		slog.String("session_id", sessionID),
		slog.String("tx_policy", policy),
	)
}

func (l *Logger) LogReconcileFailure(ctx context.Context, sessionID string, attempts int, err error) {
	l.Logger.ErrorContext(ctx,
		"Reconcile Session Failed",
		slog.String("session_id", sessionID),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// Security logging methods

func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

func (l *Logger) LogRateLimitExceeded(ctx context.Context, identifier, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("identifier", identifier),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Logger.InfoContext(ctx, msg, fieldArgs(fields)...)
}

func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := append([]interface{}{slog.String("error", err.Error())}, fieldArgs(fields)...)
	l.Logger.ErrorContext(ctx, msg, args...)
}

func (l *Logger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Logger.DebugContext(ctx, msg, fieldArgs(fields)...)
}

func fieldArgs(fields map[string]interface{}) []interface{} {
	args := make([]interface{}, 0, len(fields))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return args
}

var defaultLogger = New()

func GetDefault() *Logger {
	return defaultLogger
}

func SetDefault(logger *Logger) {
	defaultLogger = logger
}
