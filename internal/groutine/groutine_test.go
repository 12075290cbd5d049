package groutine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoPropagatesName(t *testing.T) {
	names := make(chan string, 1)
	Go(nil, "worker-1", func(ctx context.Context) {
		names <- GetName(ctx)
	})

	select {
	case name := <-names:
		assert.Equal(t, "worker-1", name)
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestGoRecoversPanic(t *testing.T) {
	orig := PanicHandler
	t.Cleanup(func() { PanicHandler = orig })

	type report struct {
		name string
		p    any
	}
	reports := make(chan report, 1)
	PanicHandler = func(name string, p any) { reports <- report{name, p} }

	Go(context.Background(), "boom", func(context.Context) {
		panic("kaboom")
	})

	select {
	case r := <-reports:
		assert.Equal(t, "boom", r.name)
		assert.Equal(t, "kaboom", r.p)
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}
}

func TestGetNameWithoutName(t *testing.T) {
	require.Empty(t, GetName(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	require.Empty(t, GetName(nil))
}
