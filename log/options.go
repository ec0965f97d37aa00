package log

import (
	"fmt"
	"strings"
)

// Format is a logging format. It implements the pflag.Value interface.
type Format uint

const (
	// FmtLogfmt is the "logfmt" logging format.
	FmtLogfmt Format = iota
	// FmtJSON is the JSON logging format.
	FmtJSON
)

var formatNames = map[Format]string{
	FmtLogfmt: "logfmt",
	FmtJSON:   "JSON",
}

// String returns the string representation of a Format.
func (f *Format) String() string {
	if name, ok := formatNames[*f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", uint(*f))
}

// Set parses s into f. An empty string leaves f unchanged, so a config may
// set the level without repeating the default format.
func (f *Format) Set(s string) error {
	switch strings.ToLower(s) {
	case "":
	case "logfmt", "text":
		*f = FmtLogfmt
	case "json":
		*f = FmtJSON
	default:
		return fmt.Errorf("logging: invalid log format: '%s'", s)
	}
	return nil
}

// Type returns the list of supported Formats.
func (f *Format) Type() string {
	return "[logfmt,JSON]"
}

// Level is a log level. It implements the pflag.Value interface.
type Level uint

const (
	// LevelDebug is the log level for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the log level for informative messages.
	LevelInfo
	// LevelWarn is the log level for warning messages.
	LevelWarn
	// LevelError is the log level for error messages.
	LevelError
)

var levelNames = []string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the string representation of a Level.
func (l *Level) String() string {
	if int(*l) < len(levelNames) {
		return levelNames[*l]
	}
	return fmt.Sprintf("Level(%d)", uint(*l))
}

// Set parses s into l. An empty string leaves l unchanged.
func (l *Level) Set(s string) error {
	s = strings.ToUpper(s)
	switch s {
	case "":
		return nil
	case "WARNING":
		*l = LevelWarn
		return nil
	}
	for i, name := range levelNames {
		if s == name {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("logging: invalid log level: '%s'", s)
}

// Type returns the list of supported Levels.
func (l *Level) Type() string {
	return "[" + strings.Join(levelNames, ",") + "]"
}
