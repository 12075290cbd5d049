package groutine

import (
	"context"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// PanicHandler is called with the goroutine name and the recovered value when fn panics.
var PanicHandler = func(name string, p any) {
	logrus.WithFields(logrus.Fields{
		"goroutine": name,
		"panic":     p,
	}).Error("Goroutine panicked")
}

// Go starts fn on a goroutine labelled name (visible in pprof profiles).
// If parentCtx is nil, context.Background() is used.
// A panic in fn is recovered and reported through PanicHandler.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		defer func() {
			if p := recover(); p != nil {
				PanicHandler(name, p)
			}
		}()
		fn(context.WithValue(ctx, goroutineNameKey, name))
	})
}

// GetName retrieves the goroutine name from the context.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(goroutineNameKey).(string); ok {
		return s
	}
	return ""
}
