package mitene

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"familyalbum/pkg/config"
	"familyalbum/pkg/logger"
	"familyalbum/pkg/models"
	"familyalbum/pkg/pagemodel"
	"familyalbum/pkg/retry"

	"github.com/stretchr/testify/require"
)

const (
	testIDToken   = "abc123"
	testPassword  = "hunter2"
	testAuthToken = "csrf-token-xyz"
)

// albumServer simulates the album site: login form, paginated listing and media files
type albumServer struct {
	*httptest.Server

	idToken    string
	mu         sync.Mutex
	pages      []string
	media      map[string][]byte
	cookies    []string
	omitToken  bool
	expired    bool
	failPage   map[int]int
	loginGets  int
	loginPosts int
	pageHits   []int
	mediaHits  map[string]int
}

func newAlbumServer(t *testing.T) *albumServer {
	t.Helper()
	return newAlbumServerFor(t, testIDToken)
}

// newAlbumServerFor serves the album behind idToken
func newAlbumServerFor(t *testing.T, idToken string) *albumServer {
	t.Helper()

	s := &albumServer{
		idToken:   idToken,
		media:     make(map[string][]byte),
		cookies:   append([]string(nil), RequiredCookies...),
		failPage:  make(map[int]int),
		mediaHits: make(map[string]int),
	}

	album := "/f/" + idToken
	mux := http.NewServeMux()
	mux.HandleFunc(album+LoginPath, s.handleLogin)
	mux.HandleFunc(album, s.handleListing)
	mux.HandleFunc(album+"/media_files/", s.handleMedia)
	mux.HandleFunc("/media/", s.handleMedia)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// setPages installs one listing page per argument; every page but the last has a next page
func (s *albumServer) setPages(t *testing.T, pages ...[]models.MediaRecord) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages = nil
	for i, records := range pages {
		payload, err := json.Marshal(models.ListingPage{
			HasNext:     i < len(pages)-1,
			HasPrev:     i > 0,
			CurrentPage: i + 1,
			MediaFiles:  records,
		})
		require.NoError(t, err)
		s.pages = append(s.pages, string(payload))
	}
}

func (s *albumServer) photo(uuid string, tookAt time.Time) models.MediaRecord {
	s.mu.Lock()
	s.media[uuid] = []byte("jpeg:" + uuid)
	s.mu.Unlock()

	return models.MediaRecord{
		UUID:        uuid,
		MediaType:   "photo",
		ContentType: "image/jpeg",
		TookAt:      tookAt,
		ExpiringURL: s.URL + "/media/" + uuid,
	}
}

func (s *albumServer) movie(uuid string, id int, tookAt time.Time) models.MediaRecord {
	s.mu.Lock()
	s.media[fmt.Sprintf("%d/download", id)] = []byte("mp4:" + uuid)
	s.mu.Unlock()

	playlist := fmt.Sprintf("%s/f/%s/media_files_playlist/%d", s.URL, s.idToken, id)
	return models.MediaRecord{
		ID:               int64(id),
		UUID:             uuid,
		MediaType:        "movie",
		ContentType:      "video/mp4",
		TookAt:           tookAt,
		ExpiringVideoURL: &playlist,
	}
}

func (s *albumServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Method == http.MethodGet {
		s.loginGets++
		writeLoginForm(w, s.idToken, s.omitToken)
		return
	}

	s.loginPosts++
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("authenticity_token") != testAuthToken ||
		r.PostForm.Get("session[password]") != testPassword ||
		r.PostForm.Get("commit") != SubmitMarker {
		writeLoginForm(w, s.idToken, false)
		return
	}

	for _, name := range s.cookies {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "v-" + name, Path: "/"})
	}
	w.Write([]byte("<html><body>ok</body></html>"))
}

func writeLoginForm(w http.ResponseWriter, idToken string, omitToken bool) {
	token := fmt.Sprintf(`<input type="hidden" name="authenticity_token" value="%s" />`, testAuthToken)
	if omitToken {
		token = ""
	}
	fmt.Fprintf(w, `<html><body><form action="/f/%s/login" method="post">%s
<input type="password" name="session[password]" />
<input type="submit" name="commit" value="Login" /></form></body></html>`, idToken, token)
}

func (s *albumServer) handleListing(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		http.Error(w, "bad page", http.StatusBadRequest)
		return
	}
	s.pageHits = append(s.pageHits, page)

	if s.expired {
		http.Redirect(w, r, "/f/"+s.idToken+LoginPath, http.StatusFound)
		return
	}
	if s.failPage[page] > 0 {
		s.failPage[page]--
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	if page < 1 || page > len(s.pages) {
		http.NotFound(w, r)
		return
	}

	fmt.Fprintf(w, `<!DOCTYPE html><html><head>
<script>
//<![CDATA[
window.gon={};gon.media=%s;gon.selfUserId="42";gon.familyUserIdToColorMap={"42":"#336699"};
//]]>
</script></head><body><div id="app"></div></body></html>`, s.pages[page-1])
}

func (s *albumServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/media/")
	key = strings.TrimPrefix(key, "/f/"+s.idToken+"/media_files/")
	s.mediaHits[key]++

	content, ok := s.media[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(content)
}

func (s *albumServer) hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mediaHits[key]
}

func (s *albumServer) loginCounts() (gets, posts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginGets, s.loginPosts
}

func (s *albumServer) requestedPages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.pageHits...)
}

func newTestClient(t *testing.T, s *albumServer, dir string) (*Client, *logger.TestLogger) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Album.BaseURL = s.URL
	cfg.Album.IDToken = s.idToken
	cfg.Album.Password = testPassword
	cfg.Output.Directory = dir
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.RateLimit.RequestsPerMinute = 0

	log := logger.NewTestLogger()
	client, err := NewClient(cfg, pagemodel.New(), log)
	require.NoError(t, err)

	client.SetRetry(&retry.Config{
		MaxAttempts: 3,
		Backoff:     retry.Constant(time.Millisecond),
		Logger:      logger.NewNopLogger(),
	})
	return client, log
}
