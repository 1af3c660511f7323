package models

import (
	"path/filepath"
	"strings"
	"time"

	"familyalbum/pkg/errors"
)

// MediaKind is the kind of a media record
type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindMovie MediaKind = "movie"
)

// ListingPage is one page of the album listing as embedded in the album page
type ListingPage struct {
	HasNext     bool          `json:"hasNext"`
	HasPrev     bool          `json:"hasPrev"`
	CurrentPage int           `json:"currentPage"`
	MediaFiles  []MediaRecord `json:"mediaFiles"`
}

// MediaRecord describes one remote photo or video
type MediaRecord struct {
	ID               int64     `json:"id"`
	UUID             string    `json:"uuid"`
	UserID           string    `json:"userId"`
	MediaType        string    `json:"mediaType"`
	ContentType      string    `json:"contentType"`
	TookAt           time.Time `json:"tookAt"`
	Latitude         *float64  `json:"latitude"`
	Longitude        *float64  `json:"longitude"`
	MediaDeviceModel *string   `json:"mediaDeviceModel"`
	MediaWidth       int       `json:"mediaWidth"`
	MediaHeight      int       `json:"mediaHeight"`
	VideoDuration    float64   `json:"videoDuration"`
	HasComment       bool      `json:"hasComment"`
	ExpiringURL      string    `json:"expiringUrl"`
	ExpiringThumbURL string    `json:"expiringThumbUrl"`
	ExpiringVideoURL *string   `json:"expiringVideoUrl"`
}

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"video/mp4":  "mp4",
}

// Kind returns the media kind, or an unknown_value error for anything but photo or movie
func (m *MediaRecord) Kind() (MediaKind, error) {
	switch k := MediaKind(m.MediaType); k {
	case KindPhoto, KindMovie:
		return k, nil
	default:
		return "", errors.New(errors.ErrorTypeUnknownValue, "unknown media type %q for %s", m.MediaType, m.UUID)
	}
}

// Extension maps the content type to a file extension
func (m *MediaRecord) Extension() (string, error) {
	ext, ok := extensions[m.ContentType]
	if !ok {
		return "", errors.New(errors.ErrorTypeUnknownValue, "unknown content type %q for %s", m.ContentType, m.UUID)
	}
	return ext, nil
}

// LocalPath returns dir/<lower-cased uuid>.<ext>. It depends only on dir, the uuid and the content type.
func (m *MediaRecord) LocalPath(dir string) (string, error) {
	ext, err := m.Extension()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strings.ToLower(m.UUID)+"."+ext), nil
}

// DownloadURL selects the URL to fetch by media kind. Movie playlist URLs are rewritten
// to the direct download endpoint.
func (m *MediaRecord) DownloadURL() (string, error) {
	kind, err := m.Kind()
	if err != nil {
		return "", err
	}

	if kind == KindPhoto {
		return m.ExpiringURL, nil
	}

	if m.ExpiringVideoURL == nil || *m.ExpiringVideoURL == "" {
		return "", errors.New(errors.ErrorTypeMalformedPayload, "movie %s has no video url", m.UUID)
	}
	u := *m.ExpiringVideoURL
	if strings.Contains(u, "/media_files_playlist/") {
		u = strings.Replace(u, "/media_files_playlist/", "/media_files/", 1) + "/download"
	}
	return u, nil
}

// HasLocation reports whether both coordinates are present
func (m *MediaRecord) HasLocation() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// DeviceModel returns the device model or "" when absent
func (m *MediaRecord) DeviceModel() string {
	if m.MediaDeviceModel == nil {
		return ""
	}
	return *m.MediaDeviceModel
}
