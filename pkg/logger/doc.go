// Package logger provides structured logging for the album downloader.
//
// It wraps zerolog with a small Logger interface so the session client,
// the downloader and the exiftool installer can log with fields without
// depending on zerolog directly.
//
// Basic Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//
//	log := logger.GetLogger().WithField("component", "mitene")
//	log.WithField("page", 3).Info("Listing page fetched")
//
// Tests capture entries with NewTestLogger and query them with HasMessage
// and HasError.
package logger
