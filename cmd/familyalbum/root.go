package main

import (
	"fmt"
	"io"
	"os"

	"familyalbum/pkg/auth"
	"familyalbum/pkg/config"
	"familyalbum/pkg/exif"
	"familyalbum/pkg/logger"
	"familyalbum/pkg/mitene"
	"familyalbum/pkg/pagemodel"
	"familyalbum/pkg/ui"
	"familyalbum/pkg/video"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// newCredentialManager is replaced in tests
var newCredentialManager = auth.NewManager

type rootOptions struct {
	configFile     string
	logLevel       string
	idToken        string
	password       string
	outputDir      string
	baseURL        string
	maxPages       int
	exif           bool
	exiftoolPath   string
	compressVideos bool
	ffmpegPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "familyalbum",
		Short: "Download every photo and video from a Family Album share link",
		Long: `familyalbum mirrors a password-protected Family Album (mitene) share link into a
local directory.

Files are saved as <uuid>.<ext>. Files that already exist are skipped, so running
the command again only fetches new media. Each new file gets its timestamps set to
the capture time and, unless --exif=false, the capture time, GPS position and
device model written into its metadata with exiftool.

The id token is the last path segment of the share link, e.g. the "abc123" in
https://mitene.us/f/abc123. Passwords can be stored with 'familyalbum auth login'.

With --compress-videos, movies are saved as <uuid>.mp4.uncompressed and re-encoded
with ffmpeg (libx264) into <uuid>.mp4 once the download finishes. A movie is not
downloaded again while either file exists.`,
		Example: `  # Download an album
  familyalbum --id-token abc123 --password secret --output-directory ./album

  # Use a stored password and skip metadata tagging
  familyalbum --id-token abc123 --output-directory ./album --exif=false

  # Shrink videos with ffmpeg after downloading
  familyalbum --id-token abc123 --output-directory ./album --compress-videos`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./.familyalbum.yaml or ~/.config/familyalbum/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")

	cmd.Flags().StringVar(&opts.idToken, "id-token", "", "album id token from the share link")
	cmd.Flags().StringVar(&opts.password, "password", "", "album password")
	cmd.Flags().StringVarP(&opts.outputDir, "output-directory", "o", "", "directory to save media into")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "album service origin")
	cmd.Flags().IntVar(&opts.maxPages, "max-pages", 0, "stop with an error after this many listing pages (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.exif, "exif", true, "write capture metadata into downloaded files")
	cmd.Flags().StringVar(&opts.exiftoolPath, "exiftool-path", "", "use this exiftool instead of downloading one")
	cmd.Flags().BoolVar(&opts.compressVideos, "compress-videos", false, "re-encode downloaded videos with ffmpeg")
	cmd.Flags().StringVar(&opts.ffmpegPath, "ffmpeg-path", "", "ffmpeg executable (default: ffmpeg on PATH)")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(newAuthCmd(opts))
	cmd.AddCommand(newExiftoolCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageErrorf("unexpected argument %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

// changedFlags collects the flags set on the command line for config.MergeCommandLineFlags
func changedFlags(cmd *cobra.Command, opts *rootOptions) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = value
		}
	}

	set("id-token", opts.idToken)
	set("password", opts.password)
	set("output-directory", opts.outputDir)
	set("base-url", opts.baseURL)
	set("log-level", opts.logLevel)
	set("max-pages", opts.maxPages)
	set("exif", opts.exif)
	set("exiftool-path", opts.exiftoolPath)
	set("compress-videos", opts.compressVideos)
	set("ffmpeg-path", opts.ffmpegPath)
	return flags
}

// loadConfig loads configuration from all sources and sets up logging
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile, changedFlags(cmd, opts))
	if err != nil {
		return nil, &usageError{err: err}
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, &usageError{err: err}
	}
	return cfg, nil
}

// resolveCredentials fills in the album id token and password from the credential
// store when they were not given any other way
func resolveCredentials(cfg *config.Config, log logger.Logger) {
	if cfg.Album.IDToken != "" && cfg.Album.Password != "" {
		return
	}

	manager, err := newCredentialManager()
	if err != nil {
		log.WithError(err).Debug("Credential store unavailable")
		return
	}

	if cfg.Album.IDToken == "" {
		album, err := manager.RetrieveDefault()
		if err != nil {
			log.WithError(err).Debug("No default album in credential store")
			return
		}
		cfg.Album.IDToken = album.IDToken
		if cfg.Album.Password == "" {
			cfg.Album.Password = album.Password
		}
		return
	}

	password, err := manager.Password(cfg.Album.IDToken)
	if err != nil {
		log.WithError(err).Debug("No stored password for album")
		return
	}
	cfg.Album.Password = password
}

// toolProvider picks the configured exiftool or an installer that fetches one on first use
func toolProvider(cfg *config.Config, log logger.Logger) exif.ToolProvider {
	if cfg.Exif.BinaryPath != "" {
		return exif.StaticTool(cfg.Exif.BinaryPath)
	}
	return newInstaller(cfg, log)
}

func newInstaller(cfg *config.Config, log logger.Logger) *exif.Installer {
	dir := cfg.Exif.ToolDir
	if dir == "" {
		dir = exif.DefaultToolDir()
	}
	installer := exif.NewInstaller(dir, log)
	installer.ArchiveURL = cfg.Exif.ArchiveURL
	return installer
}

func runDownload(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	resolveCredentials(cfg, log)
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := mitene.NewClient(cfg, pagemodel.New(), log)
	if err != nil {
		return &usageError{err: err}
	}

	if cfg.Exif.Enabled {
		tagger := exif.NewTagger(toolProvider(cfg, log))
		defer func() {
			if err := tagger.Close(); err != nil {
				log.WithError(err).Warn("Failed to stop exiftool")
			}
		}()
		client.SetTagger(tagger)
	}

	out := cmd.OutOrStdout()
	client.SetProgress(ui.NewProgressPrinter(out, isTerminal(out)))

	var compressor *video.Compressor
	if cfg.Video.Compress {
		compressor, err = video.NewCompressor(cfg.Video.FFmpegPath, cfg.Video.CRF, log)
		if err != nil {
			return err
		}
		compressor.Progress = ui.NewCompressionPrinter(out, isTerminal(out))
	}

	log.WithField("output_directory", cfg.Output.Directory).Info("Starting album download")
	summary, err := client.DownloadAll(cmd.Context())
	if err != nil {
		log.WithError(err).WithField("processed", summary.Processed).Error("Download run failed")
		return err
	}

	if summary.TagFailures > 0 {
		ui.NewPrinter(out).Warning(fmt.Sprintf("%d files were saved without metadata, see the log for details.", summary.TagFailures))
	}

	if compressor == nil {
		return nil
	}
	result, err := compressor.CompressDir(cmd.Context(), cfg.Output.Directory)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		ui.NewPrinter(out).Warning(fmt.Sprintf("%d videos could not be compressed and were left as %s files.", result.Failed, video.StagingSuffix))
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
