// Package server exposes the requirement check over HTTP so a site's admin
// UI can poll for notices. Every request re-reads the environment and
// evaluates a fresh checker; nothing is shared between requests.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/kb-labs/reqcheck/internal/manifest"
	"github.com/kb-labs/reqcheck/internal/requirements"
)

// EnvSource opens the environment for a single request. The returned close
// function is called once the request is answered.
type EnvSource func() (requirements.Environment, func() error, error)

// Server answers /notices, /notices.html and /healthz.
type Server struct {
	Manifest *manifest.Manifest
	Env      EnvSource
	Log      logrus.FieldLogger
	// AllowedOrigins defaults to "*".
	AllowedOrigins []string
}

// Response is the JSON body of /notices.
type Response struct {
	Subject   string         `json:"subject"`
	Met       bool           `json:"met"`
	CheckedAt time.Time      `json:"checkedAt"`
	Notices   []NoticeOutput `json:"notices"`
}

// NoticeOutput is a notice with its rendered message.
type NoticeOutput struct {
	requirements.Notice
	Message string `json:"message"`
}

// Handler returns the CORS-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/notices", s.handleNotices)
	mux.HandleFunc("/notices.html", s.handleNoticesHTML)

	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}
	c, ok := s.evaluate(w)
	if !ok {
		return
	}

	failures := c.Failures()
	resp := Response{
		Subject:   c.Subject().DisplayName(),
		Met:       len(failures) == 0,
		CheckedAt: time.Now().UTC(),
		Notices:   make([]NoticeOutput, len(failures)),
	}
	for i, n := range failures {
		resp.Notices[i] = NoticeOutput{Notice: n, Message: n.String()}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.Log.Errorf("encode notices: %v", err)
	}
}

func (s *Server) handleNoticesHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}
	c, ok := s.evaluate(w)
	if !ok {
		return
	}

	var b strings.Builder
	for _, n := range c.Failures() {
		b.WriteString(n.HTML())
		b.WriteString("\n")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(b.String()))
}

// evaluate opens the environment and runs a fresh checker. On failure it has
// already written the error response.
func (s *Server) evaluate(w http.ResponseWriter) (*requirements.Checker, bool) {
	env, closeEnv, err := s.Env()
	if err != nil {
		s.Log.Errorf("open environment: %v", err)
		http.Error(w, "Failed to read environment", http.StatusInternalServerError)
		return nil, false
	}
	defer func() {
		if err := closeEnv(); err != nil {
			s.Log.Warnf("close environment: %v", err)
		}
	}()

	c := s.Manifest.NewChecker(env, requirements.WithLogger(s.Log))
	c.Evaluate()
	return c, true
}
