// Package mitene is a client for password-protected Family Album (mitene) share links.
//
// A Client owns one Session: it logs in by scraping the authenticity token from the
// login form and posting the album password, then walks the paginated listing. The
// listing data is embedded in each page's HTML and decoded by an Extractor.
//
// DownloadAll saves every listed photo and video under the output directory as
// <uuid>.<ext>, skipping files that already exist, so repeated runs only fetch new
// media. Each new file gets its times set to the capture time and, when a Tagger is
// configured, capture time, GPS position and device model written into its metadata.
// Tagging failures never stop a run.
//
//	cfg := config.DefaultConfig()
//	cfg.Album.IDToken = "..."
//	cfg.Album.Password = "..."
//	cfg.Output.Directory = "album"
//
//	client, err := mitene.NewClient(cfg, pagemodel.New(), logger.GetLogger())
//	if err != nil {
//	    return err
//	}
//	summary, err := client.DownloadAll(ctx)
package mitene
