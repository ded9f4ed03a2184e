package log

import (
	"log/slog"
	"strings"
)

// Severity of a log record.
type Level int

const (
	LevelDebug   Level = -1
	LevelMessage Level = 0
	LevelInfo    Level = 1
	LevelWarning Level = 2
	LevelError   Level = 3
	LevelFatal   Level = 4
)

// Parses a level name, case-insensitively.
//
// An empty name yields [LevelWarning]. An unrecognized name yields
// [LevelMessage].
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return LevelWarning
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelMessage
	}
}

// Bracketed tag printed in leveled lines. Plain messages have no tag.
func (l Level) Tag() string {
	switch {
	case l <= LevelDebug:
		return "[Debug]"
	case l == LevelMessage:
		return ""
	case l == LevelInfo:
		return "[Info]"
	case l == LevelWarning:
		return "[Warning]"
	case l == LevelError:
		return "[Error]"
	default:
		return "[FATAL]"
	}
}

func (l Level) String() string {
	switch {
	case l <= LevelDebug:
		return "debug"
	case l == LevelMessage:
		return "message"
	case l == LevelInfo:
		return "info"
	case l == LevelWarning:
		return "warning"
	case l == LevelError:
		return "error"
	default:
		return "fatal"
	}
}

// Equivalent slog level. The mapping is monotonic, so comparisons agree in
// both domains.
func (l Level) Slog() slog.Level {
	switch {
	case l <= LevelDebug:
		return slog.LevelDebug
	case l == LevelMessage:
		return slog.LevelDebug + 2
	case l == LevelInfo:
		return slog.LevelInfo
	case l == LevelWarning:
		return slog.LevelWarn
	case l == LevelError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

// Level of an slog record, rounding down to the nearest known level.
func fromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError+4:
		return LevelFatal
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarning
	case l >= slog.LevelInfo:
		return LevelInfo
	case l >= slog.LevelDebug+2:
		return LevelMessage
	default:
		return LevelDebug
	}
}
