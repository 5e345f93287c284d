package logging

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover logs a panic in progress instead of letting it crash the
// process. It must be called directly by a deferred statement.
func Recover(logger *slog.Logger, where string) {
	r := recover()
	if r == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("recovered from panic",
		"where", where,
		"panic", fmt.Sprint(r),
		"stack", string(debug.Stack()),
	)
}
