// Package log carries a request- or message-scoped logrus entry through
// context, so every log line in a flow shares its correlation id.
package log

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}
type correlationIDKey struct{}

func Init(level logrus.Level) {
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(level)
}

func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

func FromContext(ctx context.Context) *logrus.Entry {
	entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry)
	if !ok {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return entry
}

func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) string {
	id, ok := ctx.Value(correlationIDKey{}).(string)
	if !ok {
		return ""
	}
	return id
}
