// Package logtail reads the tail of the smashtrack log file and renders its
// JSON records as single human-readable lines.
//
// Read keeps at most maxLines in a ring buffer, so memory stays bounded by
// the window rather than the file size. A missing file yields no lines and
// no error.
//
// Format turns one slog JSON record into
//
//	2026-10-16 14:32:15 INFO – analysis complete media_id=42 mode=full
//
// with attributes sorted by key. Lines that are not JSON objects pass
// through unchanged.
package logtail
