package logging

import (
	"fmt"
	"strings"
)

// Level orders log severity. Entries below a logger's level are dropped.
type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel reads a config level name, case-insensitively. "warning" is
// accepted for WARN; anything unrecognised is INFO.
func ParseLevel(s string) Level {
	l, err := lookupLevel(s)
	if err != nil {
		return InfoLevel
	}
	return l
}

func lookupLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		return WarnLevel, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// MarshalText writes the upper-case name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText rejects unknown names, unlike ParseLevel.
func (l *Level) UnmarshalText(text []byte) error {
	v, err := lookupLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
