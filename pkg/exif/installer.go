package exif

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"familyalbum/pkg/errors"
	"familyalbum/pkg/logger"
)

// DefaultVersion is the exiftool release fetched on first use
const DefaultVersion = "12.21"

type platform int

const (
	platformUnsupported platform = iota
	platformWindows
	platformUnix
)

func platformOf(goos string) platform {
	switch goos {
	case "windows":
		return platformWindows
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly":
		return platformUnix
	default:
		return platformUnsupported
	}
}

// Installer makes sure an exiftool executable exists under ToolDir, downloading and
// unpacking the release archive the first time it is needed.
type Installer struct {
	ToolDir    string
	Version    string
	ArchiveURL string // overrides the release URL derived from Version
	Client     *http.Client
	Logger     logger.Logger

	goos     string
	lookPath func(string) (string, error)

	mu   sync.Mutex
	done bool
	path string
	err  error
}

// NewInstaller creates an Installer for the running platform
func NewInstaller(toolDir string, log logger.Logger) *Installer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Installer{
		ToolDir:  toolDir,
		Version:  DefaultVersion,
		Client:   http.DefaultClient,
		Logger:   log,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
	}
}

// DefaultToolDir is the directory next to the running executable
func DefaultToolDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func (i *Installer) archiveName() string {
	if platformOf(i.goos) == platformWindows {
		return fmt.Sprintf("exiftool-%s.zip", i.Version)
	}
	return fmt.Sprintf("Image-ExifTool-%s.tar.gz", i.Version)
}

func (i *Installer) archiveURL() string {
	if i.ArchiveURL != "" {
		return i.ArchiveURL
	}
	return "https://exiftool.org/" + i.archiveName()
}

// ToolPath is where the executable lives once installed
func (i *Installer) ToolPath() string {
	if platformOf(i.goos) == platformWindows {
		return filepath.Join(i.ToolDir, "exiftool.exe")
	}
	// the Perl script needs its lib/ directory beside it
	return filepath.Join(i.ToolDir, "Image-ExifTool", "exiftool")
}

// executableName is the file searched for inside the extracted archive
func (i *Installer) executableName() string {
	if platformOf(i.goos) == platformWindows {
		return "exiftool(-k).exe"
	}
	return "exiftool"
}

// EnsureTool returns the path of a usable exiftool, installing it on first use.
// Success and permanent failures are remembered. Failed downloads and cancelled
// contexts are retried by the next call.
func (i *Installer) EnsureTool(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.done {
		return i.path, i.err
	}

	path, err := i.install(ctx)
	if err == nil || errors.IsType(err, errors.ErrorTypeUnsupportedPlatform) || errors.IsType(err, errors.ErrorTypeToolNotFound) {
		i.done = true
		i.path, i.err = path, err
	}
	return path, err
}

func (i *Installer) install(ctx context.Context) (string, error) {
	switch platformOf(i.goos) {
	case platformUnsupported:
		return "", errors.New(errors.ErrorTypeUnsupportedPlatform, "exiftool cannot be installed on %s", i.goos)
	case platformUnix:
		if _, err := i.lookPath("perl"); err != nil {
			return "", errors.Wrap(errors.ErrorTypeUnsupportedPlatform, err, "exiftool requires perl on PATH")
		}
	}

	target := i.ToolPath()
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	if err := os.MkdirAll(i.ToolDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create tool directory: %w", err)
	}

	archivePath := filepath.Join(i.ToolDir, i.archiveName())
	staging, err := os.MkdirTemp(i.ToolDir, "exif-staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer i.cleanup(staging, archivePath)

	i.Logger.WithField("url", i.archiveURL()).Info("Downloading exiftool")
	if err := i.download(ctx, archivePath); err != nil {
		return "", err
	}

	if platformOf(i.goos) == platformWindows {
		err = extractZip(archivePath, staging)
	} else {
		err = extractTarGz(archivePath, staging)
	}
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", archivePath, err)
	}

	found, err := findFile(staging, i.executableName())
	if err != nil {
		return "", err
	}

	if platformOf(i.goos) == platformWindows {
		err = os.Rename(found, target)
	} else {
		err = moveDistribution(filepath.Dir(found), filepath.Dir(target))
		if err == nil {
			err = os.Chmod(target, 0755)
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to install exiftool: %w", err)
	}

	i.Logger.WithField("path", target).Info("exiftool installed")
	return target, nil
}

func (i *Installer) download(ctx context.Context, dest string) error {
	url := i.archiveURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := i.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, err, "GET %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.HTTPStatus(resp.StatusCode, url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return errors.Wrap(errors.ErrorTypeNetwork, err, "reading %s", url)
	}
	return out.Close()
}

// cleanup removes the staging directory and archive. Failures are logged only.
func (i *Installer) cleanup(staging, archive string) {
	if err := os.RemoveAll(staging); err != nil {
		i.Logger.WithError(err).WithField("path", staging).Warn("Failed to remove staging directory")
	}
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		i.Logger.WithError(err).WithField("path", archive).Warn("Failed to remove archive")
	}
}

func findFile(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to search extracted archive: %w", err)
	}
	if found == "" {
		return "", errors.New(errors.ErrorTypeToolNotFound, "%s not found in archive", name)
	}
	return found, nil
}

func moveDistribution(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}
