package notify_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	infnotify "github.com/ogsentinel/fleetwatch/internal/infrastructure/notify"
)

func TestLogSinkWritesHostileEventLine(t *testing.T) {
	var buf bytes.Buffer
	sink := infnotify.NewLogSink(log.New(&buf, "", 0))

	planet := coordinates.New(1, 1, 1, coordinates.Planet)
	sink.Notify(notify.NewHostileEvent(planet, 3600, nil))

	out := buf.String()
	assert.Contains(t, out, "hostile_event")
	assert.Contains(t, out, "arrival=3600")
}

func TestLogSinkRendersFullErrorChainOnFatal(t *testing.T) {
	var buf bytes.Buffer
	sink := infnotify.NewLogSink(log.New(&buf, "", 0))

	inner := assertErr("inner failure")
	wrapped := wrapErr("outer context", inner)
	sink.Notify(notify.NewFatal(wrapped))

	out := buf.String()
	assert.Contains(t, out, "inner failure")
	assert.Contains(t, out, "outer context")
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }

type wrappedErr struct {
	msg   string
	cause error
}

func (e wrappedErr) Error() string { return e.msg }
func (e wrappedErr) Unwrap() error { return e.cause }

func wrapErr(msg string, cause error) error { return wrappedErr{msg: msg, cause: cause} }
