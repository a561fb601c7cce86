// Package vlog carries a structured logger on a context.Context, the way
// distribution/context and distribution/context/logger.go do it, updated to
// stdlib context and the current sirupsen/logrus import path.
package vlog

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// Logger is the leveled-logging interface handlers log through.
type Logger = logrus.FieldLogger

var root = logrus.StandardLogger()

// Configure sets the base logger's level and format. Called once at service
// startup (cmd/vorpal), never lazily.
func Configure(level string, jsonFormat bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	root.SetLevel(lvl)
	if jsonFormat {
		root.SetFormatter(&logrus.JSONFormatter{})
	} else {
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger stored on ctx, or the package root logger if
// none was attached.
func GetLogger(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return l
	}
	return root
}

// WithField returns a context whose logger has key=value attached, resolving
// through any logger already on ctx.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return WithLogger(ctx, GetLogger(ctx).WithField(key, value))
}

// WithFields returns a context whose logger has fields attached.
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	return WithLogger(ctx, GetLogger(ctx).WithFields(logrus.Fields(fields)))
}

// Fields is a convenience constructor avoiding a logrus import at call sites.
func Fields(kv ...interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
