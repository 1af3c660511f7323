// Package video re-encodes downloaded movies with ffmpeg to save space.
package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"familyalbum/pkg/errors"
	"familyalbum/pkg/logger"
)

// StagingSuffix marks a downloaded movie that has not been re-encoded yet
const StagingSuffix = ".uncompressed"

// DefaultCRF is the x264 quality used when none is configured
const DefaultCRF = 28

// StagingPath is where a movie destined for path waits for compression
func StagingPath(path string) string {
	return path + StagingSuffix
}

// Progress receives compression progress
type Progress interface {
	Start(total int)
	Update(done, total int)
	Finish(compressed int)
}

type nopProgress struct{}

func (nopProgress) Start(int)       {}
func (nopProgress) Update(int, int) {}
func (nopProgress) Finish(int)      {}

// Result counts what a CompressDir run did
type Result struct {
	Compressed int
	Failed     int
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Compressor re-encodes staged movies with ffmpeg
type Compressor struct {
	FFmpeg   string
	CRF      int
	Logger   logger.Logger
	Progress Progress

	run runFunc
}

// NewCompressor resolves ffmpegPath (or "ffmpeg" on PATH when empty)
func NewCompressor(ffmpegPath string, crf int, log logger.Logger) (*Compressor, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeToolNotFound, err, "ffmpeg not found (%s)", ffmpegPath)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Compressor{
		FFmpeg:   resolved,
		CRF:      crf,
		Logger:   log.WithField("component", "video"),
		Progress: nopProgress{},
		run:      runCommand,
	}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func ffmpegArgs(src, dst string, crf int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", src,
		"-movflags", "use_metadata_tags",
		"-vcodec", "libx264",
		"-crf", strconv.Itoa(crf),
		"-f", "mp4",
		"-y", dst,
	}
}

// Pending lists the staged movies in dir, sorted by name
func Pending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var staged []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), StagingSuffix) {
			staged = append(staged, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(staged)
	return staged, nil
}

// CompressDir encodes every staged movie in dir into its final path, copies the
// staged file's modification time over and removes the staged file. A movie that
// fails to encode stays staged for the next run.
func (c *Compressor) CompressDir(ctx context.Context, dir string) (*Result, error) {
	progress := c.Progress
	if progress == nil {
		progress = nopProgress{}
	}

	staged, err := Pending(dir)
	if err != nil {
		return &Result{}, err
	}

	result := &Result{}
	progress.Start(len(staged))
	if len(staged) == 0 {
		return result, nil
	}

	for i, src := range staged {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := c.compress(ctx, src); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.Failed++
			c.Logger.WithError(err).WithField("path", src).Warn("Failed to compress video")
		} else {
			result.Compressed++
		}
		progress.Update(i+1, len(staged))
	}

	progress.Finish(result.Compressed)
	c.Logger.InfoWithFields("Video compression finished", map[string]interface{}{
		"compressed": result.Compressed,
		"failed":     result.Failed,
	})
	return result, nil
}

func (c *Compressor) compress(ctx context.Context, src string) error {
	dst := strings.TrimSuffix(src, StagingSuffix)
	tmp := dst + ".tmp"

	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if out, err := c.run(ctx, c.FFmpeg, ffmpegArgs(src, tmp, c.CRF)...); err != nil {
		os.Remove(tmp)
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}

	if err := os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to copy file times: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move encoded file: %w", err)
	}

	if err := os.Remove(src); err != nil {
		c.Logger.WithError(err).WithField("path", src).Warn("Failed to remove staged video")
	}
	c.Logger.WithField("path", dst).Debug("Video compressed")
	return nil
}
