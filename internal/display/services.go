package display

import (
	"time"

	"github.com/google/uuid"
)

// Logger receives engine diagnostics. Args alternate keys and values, as
// with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger drops everything.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// Clock supplies the selection time. It anchors the recency window and
// stamps history entries.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator names runs, so log lines and history entries from one
// invocation can be matched up.
type IDGenerator interface {
	New() string
}

// UUIDGenerator returns random UUID strings.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
