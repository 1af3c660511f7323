package exif

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/barasher/go-exiftool"
)

// DateFormat is the layout exiftool expects for date/time tags
const DateFormat = "2006:01:02 15:04:05"

// Metadata is what gets stamped onto a downloaded file. Zero values are skipped.
type Metadata struct {
	CapturedAt  time.Time
	Latitude    *float64
	Longitude   *float64
	DeviceModel string
}

type metadataWriter interface {
	WriteMetadata(fileMetadata []exiftool.FileMetadata)
	Close() error
}

// ToolProvider returns the path of an exiftool executable
type ToolProvider interface {
	EnsureTool(ctx context.Context) (string, error)
}

// StaticTool is a ToolProvider for an exiftool that is already installed
type StaticTool string

func (s StaticTool) EnsureTool(context.Context) (string, error) { return string(s), nil }

// Tagger writes capture metadata into media files through a long-running exiftool process
type Tagger struct {
	tools     ToolProvider
	newWriter func(binary string) (metadataWriter, error)

	mu     sync.Mutex
	writer metadataWriter
}

// NewTagger creates a Tagger that starts exiftool lazily on the first Apply
func NewTagger(tools ToolProvider) *Tagger {
	return &Tagger{
		tools: tools,
		newWriter: func(binary string) (metadataWriter, error) {
			return exiftool.NewExiftool(exiftool.SetExiftoolBinaryPath(binary))
		},
	}
}

// Apply overwrites path in place with the given metadata
func (t *Tagger) Apply(ctx context.Context, path string, md Metadata) error {
	fm := buildFileMetadata(path, md)
	if len(fm.Fields) == 0 {
		return nil
	}

	w, err := t.ensureWriter(ctx)
	if err != nil {
		return err
	}

	fms := []exiftool.FileMetadata{fm}
	w.WriteMetadata(fms)
	if fms[0].Err != nil {
		return fmt.Errorf("exiftool failed on %s: %w", path, fms[0].Err)
	}
	return nil
}

func (t *Tagger) ensureWriter(ctx context.Context) (metadataWriter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writer != nil {
		return t.writer, nil
	}

	binary, err := t.tools.EnsureTool(ctx)
	if err != nil {
		return nil, err
	}
	w, err := t.newWriter(binary)
	if err != nil {
		return nil, fmt.Errorf("could not start exiftool: %w", err)
	}
	t.writer = w
	return w, nil
}

// Close stops the exiftool process if one was started
func (t *Tagger) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writer == nil {
		return nil
	}
	err := t.writer.Close()
	t.writer = nil
	return err
}

func buildFileMetadata(path string, md Metadata) exiftool.FileMetadata {
	fm := exiftool.EmptyFileMetadata()
	fm.File = path

	if !md.CapturedAt.IsZero() {
		stamp := md.CapturedAt.Local().Format(DateFormat)
		fm.SetString("DateTimeOriginal", stamp)
		fm.SetString("CreateDate", stamp)
	}

	if md.Latitude != nil && md.Longitude != nil {
		lat, lon := *md.Latitude, *md.Longitude
		fm.SetFloat("GPSLatitude", math.Abs(lat))
		fm.SetString("GPSLatitudeRef", hemisphere(lat, "N", "S"))
		fm.SetFloat("GPSLongitude", math.Abs(lon))
		fm.SetString("GPSLongitudeRef", hemisphere(lon, "E", "W"))
	}

	if model := strings.TrimSpace(md.DeviceModel); model != "" {
		fm.SetString("Model", model)
	}

	return fm
}

func hemisphere(v float64, positive, negative string) string {
	if v < 0 {
		return negative
	}
	return positive
}
