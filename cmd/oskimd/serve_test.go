package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"oskim/internal/modifier"
)

type capsFunc func(ctx context.Context, fn func(on bool)) error

func (f capsFunc) Run(ctx context.Context, fn func(on bool)) error { return f(ctx, fn) }

func TestObserveCapsLockWithoutLEDWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	observeCapsLock(context.Background(), capsFunc(func(context.Context, func(bool)) error {
		return modifier.ErrNoLED
	}), func(bool) {}, logger)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "caps lock sync disabled")
}

func TestObserveCapsLockForwardsChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var got []bool
	observeCapsLock(context.Background(), capsFunc(func(_ context.Context, fn func(bool)) error {
		fn(false)
		fn(true)
		return nil
	}), func(on bool) { got = append(got, on) }, logger)

	assert.Equal(t, []bool{false, true}, got)
	assert.Empty(t, buf.String())
}

func TestObserveCapsLockReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	observeCapsLock(context.Background(), capsFunc(func(context.Context, func(bool)) error {
		return errors.New("device gone")
	}), func(bool) {}, logger)

	assert.Contains(t, buf.String(), "caps lock observer stopped")
}
