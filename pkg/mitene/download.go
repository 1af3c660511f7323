package mitene

import (
	"context"
	"fmt"

	"familyalbum/pkg/exif"
	"familyalbum/pkg/logger"
	"familyalbum/pkg/models"
	"familyalbum/pkg/video"
)

// Tagger stamps capture metadata onto a downloaded file
type Tagger interface {
	Apply(ctx context.Context, path string, md exif.Metadata) error
}

// Progress receives pipeline progress
type Progress interface {
	Start(outputDir string, total int)
	Update(processed, total int)
	Finish(downloaded int)
}

type nopProgress struct{}

func (nopProgress) Start(string, int) {}
func (nopProgress) Update(int, int)   {}
func (nopProgress) Finish(int)        {}

// TagStatus is the outcome of the metadata step for one file
type TagStatus int

const (
	TagNotAttempted TagStatus = iota
	TagApplied
	TagFailed
)

func (s TagStatus) String() string {
	switch s {
	case TagApplied:
		return "applied"
	case TagFailed:
		return "failed"
	default:
		return "not_attempted"
	}
}

// FileOutcome records what happened to one media record. Download and tagging
// results are independent.
type FileOutcome struct {
	Record     models.MediaRecord
	Path       string
	Downloaded bool
	Skipped    bool
	Tag        TagStatus
	TagErr     error
}

// Summary is the result of a DownloadAll run
type Summary struct {
	Total       int
	Processed   int
	Downloaded  int
	TagFailures int
	Outcomes    []FileOutcome
}

// MetadataFor derives the metadata to stamp from a listing record
func MetadataFor(r *models.MediaRecord) exif.Metadata {
	md := exif.Metadata{
		CapturedAt:  r.TookAt,
		DeviceModel: r.DeviceModel(),
	}
	if r.HasLocation() {
		md.Latitude = r.Latitude
		md.Longitude = r.Longitude
	}
	return md
}

// DownloadAll fetches the whole listing and downloads every record whose local file
// does not exist yet, in listing order. Tagging failures are recorded and logged;
// every other failure stops the run and is returned together with the partial summary.
func (c *Client) DownloadAll(ctx context.Context) (*Summary, error) {
	records, err := c.FetchAllMedia(ctx)
	if err != nil {
		return &Summary{}, err
	}

	if err := c.storage.EnsureDir(); err != nil {
		return &Summary{}, err
	}

	dir := c.storage.OutputDir()
	summary := &Summary{Total: len(records), Outcomes: make([]FileOutcome, 0, len(records))}
	c.progress.Start(dir, summary.Total)

	for i := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := c.processRecord(ctx, &records[i], dir)
		if err != nil {
			return summary, err
		}

		if outcome.Downloaded {
			summary.Downloaded++
		}
		if outcome.Tag == TagFailed {
			summary.TagFailures++
		}
		summary.Processed++
		summary.Outcomes = append(summary.Outcomes, outcome)
		c.progress.Update(summary.Processed, summary.Total)
	}

	c.progress.Finish(summary.Downloaded)

	fields := map[string]interface{}{
		"processed":    summary.Processed,
		"downloaded":   summary.Downloaded,
		"tag_failures": summary.TagFailures,
	}
	if n, err := c.storage.Count(); err == nil {
		fields["files_on_disk"] = n
	}
	c.logger.InfoWithFields("Download run finished", fields)
	return summary, nil
}

func (c *Client) processRecord(ctx context.Context, rec *models.MediaRecord, dir string) (FileOutcome, error) {
	outcome := FileOutcome{Record: *rec}

	path, err := rec.LocalPath(dir)
	if err != nil {
		return outcome, fmt.Errorf("record %s: %w", rec.UUID, err)
	}
	outcome.Path = path

	candidates := []string{path}
	if c.stageMovies && models.MediaKind(rec.MediaType) == models.KindMovie {
		// movies wait under the staging name until they are compressed
		candidates = append(candidates, video.StagingPath(path))
	}
	for _, candidate := range candidates {
		exists, err := c.storage.Exists(candidate)
		if err != nil {
			return outcome, err
		}
		if exists {
			outcome.Path = candidate
			outcome.Skipped = true
			logger.LogDownload(c.logger, rec.UUID, candidate, false, nil)
			return outcome, nil
		}
	}
	path = candidates[len(candidates)-1]
	outcome.Path = path

	url, err := rec.DownloadURL()
	if err != nil {
		return outcome, fmt.Errorf("record %s: %w", rec.UUID, err)
	}

	if _, err := c.download(ctx, url, path); err != nil {
		logger.LogDownload(c.logger, rec.UUID, path, false, err)
		return outcome, fmt.Errorf("downloading %s: %w", path, err)
	}
	if err := c.storage.SetTimes(path, rec.TookAt); err != nil {
		return outcome, err
	}
	outcome.Downloaded = true
	logger.LogDownload(c.logger, rec.UUID, path, true, nil)

	if c.tagger == nil {
		return outcome, nil
	}

	if err := c.tagger.Apply(ctx, path, MetadataFor(rec)); err != nil {
		outcome.Tag = TagFailed
		outcome.TagErr = err
		c.logger.WithError(err).WithField("path", path).Warn("Error while updating metadata")
		return outcome, nil
	}
	outcome.Tag = TagApplied

	// rewriting the file resets its modification time
	if err := c.storage.SetTimes(path, rec.TookAt); err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("Failed to restore file times after tagging")
	}
	return outcome, nil
}
