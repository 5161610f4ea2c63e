// Package safe holds cleanup helpers whose failures are logged rather than
// returned, for use in defer and on error paths.
package safe

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
)

// Close closes c and logs a failure with the given path. A nil closer is
// ignored.
func Close(ctx context.Context, c io.Closer, path string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logging.From(ctx).Warn("Failed to close",
			slog.String(model.PathKey, path),
			slog.Any("error", err),
		)
	}
}

// Remove deletes a leftover file such as an uncommitted temporary ledger.
// A file that is already gone is not an error.
func Remove(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.From(ctx).Warn("Failed to remove file",
			slog.String(model.PathKey, path),
			slog.Any("error", err),
		)
	}
}

// Write sends a response body after the status line is out, when nothing
// but logging is left to do with an error. It reports whether all bytes
// were written.
func Write(ctx context.Context, w io.Writer, data []byte) bool {
	if w == nil {
		return false
	}
	n, err := w.Write(data)
	if err != nil {
		logging.From(ctx).Warn("Failed to write response",
			slog.Int("written", n),
			slog.Int("size", len(data)),
			slog.Any("error", err),
		)
		return false
	}
	return n == len(data)
}
