package logger

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

// UserIDKey is used to store the authenticated user on the context.
type UserIDKey struct{}

// New returns a singleton zap.Logger. Production uses JSON output at info level,
// everything else a colored console encoder at debug level.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.InitialFields = map[string]any{"service": "society-portal"}

		lg, err = cfg.Build()
	})

	return lg, err
}

// WithContext attaches request scoped fields to the logger.
func WithContext(ctx context.Context) *zap.Logger {
	base := lg
	if base == nil {
		base = zap.NewNop()
	}
	return Scoped(ctx, base)
}

// Scoped attaches request scoped fields from ctx to base.
func Scoped(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}

	var fields []zap.Field
	if val, ok := ctx.Value(RequestIDKey{}).(string); ok && val != "" {
		fields = append(fields, zap.String("request_id", val))
	}
	if val, ok := ctx.Value(UserIDKey{}).(string); ok && val != "" {
		fields = append(fields, zap.String("user_id", val))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

var (
	emailRegex = regexp.MustCompile(`^([^@]{1,3})[^@]*(@.+)$`)
	phoneRegex = regexp.MustCompile(`^(\+?\d{1,3})(\d{2,})(\d{4})$`)
)

// MaskEmail keeps the first three characters and the domain.
// john.doe@example.com -> joh***@example.com
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	matches := emailRegex.FindStringSubmatch(email)
	if len(matches) == 3 {
		return matches[1] + "***" + matches[2]
	}

	if _, domain, ok := strings.Cut(email, "@"); ok {
		return "***@" + domain
	}
	return "***"
}

// MaskPhone keeps the leading digits and the last four.
// 9876543210 -> 987***3210
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}

	compact := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	matches := phoneRegex.FindStringSubmatch(compact)
	if len(matches) == 4 {
		return matches[1] + "***" + matches[3]
	}

	if len(compact) > 4 {
		return "***" + compact[len(compact)-4:]
	}
	return "***"
}

// MaskIP hides the host part of an address.
// 192.168.1.100 -> 192.168.*.*
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			return parts[0] + "." + parts[1] + ".*.*"
		}
	}

	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		if len(parts) >= 4 {
			return strings.Join(parts[:4], ":") + ":*:*:*:*"
		}
	}

	return "***"
}
