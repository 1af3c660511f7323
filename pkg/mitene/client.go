package mitene

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"familyalbum/pkg/config"
	"familyalbum/pkg/errors"
	"familyalbum/pkg/logger"
	"familyalbum/pkg/models"
	"familyalbum/pkg/ratelimit"
	"familyalbum/pkg/retry"
	"familyalbum/pkg/storage"
)

// maxPageSize caps how much of a login or listing page is read into memory
const maxPageSize = 32 << 20

// Extractor turns a listing page body into its structured payload
type Extractor interface {
	Extract(body []byte) (*models.ListingPage, error)
}

// Client talks to one album. It is not safe for concurrent use.
type Client struct {
	session     *Session
	httpClient  *http.Client
	headers     map[string]string
	timeout     time.Duration
	limiter     ratelimit.Limiter
	retry       *retry.Config
	extractor   Extractor
	storage     *storage.Manager
	tagger      Tagger
	progress    Progress
	maxPages    int
	stageMovies bool
	logger      logger.Logger
}

// NewClient creates a client for the album described by cfg. Tagging is off until
// SetTagger is called.
func NewClient(cfg *config.Config, extractor Extractor, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	session, err := NewSession(AlbumURL(cfg.Album.BaseURL, cfg.Album.IDToken), cfg.Album.Password)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HTTP.Timeout

	return &Client{
		session: session,
		httpClient: &http.Client{
			Transport: transport,
			Jar:       session.Jar(),
		},
		headers: map[string]string{
			"User-Agent":      cfg.HTTP.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": cfg.HTTP.AcceptLanguage,
		},
		timeout:     cfg.HTTP.Timeout,
		limiter:     ratelimit.FromSettings(cfg.RateLimit),
		retry:       retry.FromSettings(cfg.Retry, log),
		extractor:   extractor,
		storage:     storage.NewManager(cfg.Output.Directory),
		progress:    nopProgress{},
		maxPages:    cfg.Pagination.MaxPages,
		stageMovies: cfg.Video.Compress,
		logger:      log.WithField("component", "album_client"),
	}, nil
}

// Session returns the client's session
func (c *Client) Session() *Session {
	return c.session
}

// SetTagger enables metadata tagging of downloaded files
func (c *Client) SetTagger(t Tagger) {
	c.tagger = t
}

// SetProgress sets the progress reporter for DownloadAll
func (c *Client) SetProgress(p Progress) {
	if p == nil {
		p = nopProgress{}
	}
	c.progress = p
}

// SetRetry replaces the retry policy for GET requests
func (c *Client) SetRetry(cfg *retry.Config) {
	c.retry = cfg
}

// withTimeout bounds page and login exchanges. Media downloads are not bounded.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WithError(err).WithField("url", req.URL.String()).Debug("HTTP request failed")
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "%s %s", req.Method, req.URL.Redacted())
	}

	logger.LogRequest(c.logger, req.Method, req.URL.Redacted(), resp.StatusCode, time.Since(start))
	return resp, nil
}

// get issues a GET, retrying network failures and retryable statuses. Any other
// response is returned to the caller unchecked.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	return retry.DoWithResult(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.doRequest(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			drain(resp)
			return nil, errors.HTTPStatus(resp.StatusCode, req.URL.Redacted())
		}
		return resp, nil
	})
}

func (c *Client) post(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doRequest(req)
}

// Login authenticates the session once. Calls after a successful login do nothing.
func (c *Client) Login(ctx context.Context) error {
	if c.session.Authenticated() {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	loginURL := LoginURL(c.session.AlbumURL())
	c.logger.Debug("Logging in to album")

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.get(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	page, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	token, ok := findAuthenticityToken(page)
	if !ok {
		return errors.New(errors.ErrorTypeProtocolMismatch, "authenticity token not found on login page")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err = c.post(ctx, loginURL, LoginForm(token, c.session.password))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if _, err := readBody(resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if missing := c.session.missingCookies(); len(missing) > 0 {
		return errors.New(errors.ErrorTypeAuthenticationIncomplete, "missing cookies after login: %s", strings.Join(missing, ", "))
	}

	c.session.markAuthenticated(token)
	c.logger.Info("Logged in to album")
	return nil
}

// FetchPage logs in if needed and returns one page of the listing
func (c *Client) FetchPage(ctx context.Context, page int) (*models.ListingPage, error) {
	if err := c.Login(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, PageURL(c.session.AlbumURL(), page))
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	if isLoginPage(resp.Request.URL, c.session.AlbumURL()) {
		drain(resp)
		return nil, errors.New(errors.ErrorTypeSessionExpired, "page %d redirected to the login page", page)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	listing, err := c.extractor.Extract(body)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	logger.LogPage(c.logger, page, len(listing.MediaFiles), listing.HasNext)
	return listing, nil
}

// FetchAllMedia walks the listing from page 1 until a page reports no next page and
// returns every record in page order.
func (c *Client) FetchAllMedia(ctx context.Context) ([]models.MediaRecord, error) {
	var records []models.MediaRecord

	for page := 1; ; page++ {
		if c.maxPages > 0 && page > c.maxPages {
			return records, errors.New(errors.ErrorTypePageLimit, "listing still has more pages after %d", c.maxPages)
		}

		listing, err := c.FetchPage(ctx, page)
		if err != nil {
			return records, err
		}
		records = append(records, listing.MediaFiles...)

		if !listing.HasNext {
			return records, nil
		}
	}
}

// download streams url into path. Media URLs are pre-signed, so no rate limiting applies.
func (c *Client) download(ctx context.Context, rawURL, path string) (int64, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errors.HTTPStatus(resp.StatusCode, resp.Request.URL.Redacted())
	}

	n, err := c.storage.Save(resp.Body, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return n, ctxErr
		}
		return n, err
	}
	return n, nil
}

// readBody checks the status and reads the whole body
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.HTTPStatus(resp.StatusCode, resp.Request.URL.Redacted())
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "reading %s", resp.Request.URL.Redacted())
	}
	return body, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
