// Package redliontest provides a fake Red Lion data station for tests
package redliontest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
)

const (
	// IndexPath is where the station lists its log folder
	IndexPath = "/logs/GASLOG"
	// SecondaryPath serves the same files under the alternate folder some stations use
	SecondaryPath = "/logs/GASLOG0"
)

// Station is a running fake data station
type Station struct {
	*httptest.Server

	Username string
	Password string

	mu       sync.Mutex
	files    map[string][]byte
	failing  map[string]int
	extra    []string
	requests atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

// NewStation starts a station serving files (name -> raw bytes) behind basic auth
func NewStation(username, password string, files map[string][]byte) *Station {
	s := &Station{
		Username: username,
		Password: password,
		files:    make(map[string][]byte, len(files)),
		failing:  make(map[string]int),
	}
	for name, body := range files {
		s.files[name] = body
	}

	r := chi.NewRouter()
	r.Use(s.count)
	r.Use(middleware.BasicAuth("redlion", map[string]string{username: password}))
	r.Get(IndexPath, s.index)
	r.Get(IndexPath+"/{name}", s.file)
	r.Get(SecondaryPath+"/{name}", s.file)

	s.Server = httptest.NewServer(r)
	return s
}

// Location returns connection details for the station. With secondary set,
// file links point at SecondaryPath.
func (s *Station) Location(secondary bool) config.ServerLocation {
	loc := config.ServerLocation{
		URL:      s.URL + IndexPath,
		Username: s.Username,
		Password: s.Password,
	}
	if secondary {
		loc.Secondary = s.URL + SecondaryPath
	}
	return loc
}

// FailWith makes requests for name answer with status
func (s *Station) FailWith(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[name] = status
}

// AddIndexEntry lists an extra href on the index page without serving it
func (s *Station) AddIndexEntry(href string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra = append(s.extra, href)
}

// Requests returns how many requests reached the station, including rejected ones
func (s *Station) Requests() int64 {
	return s.requests.Load()
}

// MaxConcurrent returns the highest number of requests served at once
func (s *Station) MaxConcurrent() int64 {
	return s.maxSeen.Load()
}

func (s *Station) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		n := s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		for {
			seen := s.maxSeen.Load()
			if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}

// index renders the folder listing the way the stations do, with Windows style hrefs
func (s *Station) index(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	extra := append([]string(nil), s.extra...)
	s.mu.Unlock()
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<html><head><title>GASLOG</title></head><body><table>\n")
	b.WriteString(`<tr><td><a href="\logs">Parent Directory</a></td></tr>` + "\n")
	for _, name := range names {
		fmt.Fprintf(&b, `<tr><td><a href="%s">%s</a></td></tr>`+"\n",
			html.EscapeString(`\LOGS\GASLOG\`+name), html.EscapeString(name))
	}
	for _, href := range extra {
		fmt.Fprintf(&b, `<tr><td><a href="%s">extra</a></td></tr>`+"\n", html.EscapeString(href))
	}
	b.WriteString("</table></body></html>\n")

	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(b.String()))
}

func (s *Station) file(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.mu.Lock()
	status, failing := s.failing[name]
	body, ok := s.files[name]
	s.mu.Unlock()

	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Write(body)
}
