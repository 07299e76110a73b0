package remotelog

import (
	"fmt"
	"strings"
)

// Level is the severity of a Record. Levels are ordered; a higher value is more severe.
type Level int8

const (
	// LevelTrace is the finest level and also the threshold that accepts everything.
	LevelTrace Level = iota
	// LevelDebug is used for diagnostic detail.
	LevelDebug
	// LevelInfo is used for routine events.
	LevelInfo
	// LevelWarn is used for recoverable problems.
	LevelWarn
	// LevelError is used for failures.
	LevelError

	// LevelFatal shares the ERROR rank. The façade logs fatal calls at ERROR and
	// IsFatalEnabled answers with the ERROR check.
	LevelFatal = LevelError
)

var levelNames = [...]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// String returns the upper-case name of the level.
func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", int8(l))
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= LevelTrace && l <= LevelError
}

// Enabled reports whether a record at level other passes a threshold of l.
func (l Level) Enabled(other Level) bool {
	return other >= l
}

// ParseLevel converts a level name into a Level. Names are case-insensitive;
// "all" is an alias for trace, "warning" for warn and "fatal" for error.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "all", "finest":
		return LevelTrace, nil
	case "debug", "fine":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error", "fatal", "severe":
		return LevelError, nil
	default:
		return LevelTrace, fmt.Errorf("%w: %q", ErrInvalidLevel, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
