package common

import (
	"io"
)

// Logger is the subset of *log.Logger needed by the helpers below. It lets
// this package stay free of a dependency on the log package.
type Logger interface {
	Error(msg string, keyvals ...interface{})
}

// CloseOrLog closes c, logging any error.
func CloseOrLog(c io.Closer, logger Logger) {
	if err := c.Close(); err != nil {
		logger.Error("close failed", "err", err)
	}
}

// WriteOrLog writes p to w, logging any error.
func WriteOrLog(w io.Writer, p []byte, logger Logger) {
	if _, err := w.Write(p); err != nil {
		logger.Error("write failed", "err", err)
	}
}
