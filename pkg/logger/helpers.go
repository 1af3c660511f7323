package logger

import (
	"time"
)

// LogRequest logs a completed HTTP exchange with the album service
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogPage logs a fetched listing page
func LogPage(l Logger, page, items int, hasNext bool) {
	l.DebugWithFields("Listing page fetched", map[string]interface{}{
		"page":     page,
		"items":    items,
		"has_next": hasNext,
	})
}

// LogDownload logs the outcome of a single media file
func LogDownload(l Logger, uuid, path string, downloaded bool, err error) {
	entry := l.WithFields(map[string]interface{}{
		"uuid": uuid,
		"path": path,
	})

	switch {
	case err != nil:
		entry.WithError(err).Error("Download failed")
	case downloaded:
		entry.Debug("Download completed")
	default:
		entry.Debug("Download skipped, file exists")
	}
}
