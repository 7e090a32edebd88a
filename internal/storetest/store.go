// Package storetest provides an in-memory stand-in for the remote message
// store, served over HTTP with the same four endpoints. Tests and local
// development point the client at it instead of the real store.
package storetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adi-253/msglist/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Result codes written by the store.
const (
	CodeSuccess = 100
	CodeFailure = -100
)

// Mode selects how the store answers.
type Mode int

const (
	// ModeNormal applies requests and answers like the real store
	ModeNormal Mode = iota
	// ModeReject answers mutations with CodeFailure without applying them
	ModeReject
	// ModeBroken answers every request with a 500 and no JSON body
	ModeBroken
	// ModeGarbage answers every request with a 200 and a body that is not JSON
	ModeGarbage
)

// Call records one request the store received.
type Call struct {
	Method    string
	Path      string
	ID        int64
	RequestID string
}

// Store is an in-memory message store.
type Store struct {
	mu       sync.RWMutex
	messages map[int64]models.Message
	calls    []Call
	mode     Mode
	delay    time.Duration
	hold     chan struct{}
}

// New creates an empty store seeded with msgs.
func New(msgs ...models.Message) *Store {
	s := &Store{messages: make(map[int64]models.Message)}
	for _, m := range msgs {
		s.messages[m.ID] = m
	}
	return s
}

// SetMode switches how later requests are answered.
func (s *Store) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// SetDelay makes every later request wait d before being handled.
func (s *Store) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hold blocks every later request until Release is called.
func (s *Store) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold == nil {
		s.hold = make(chan struct{})
	}
}

// Release lets held requests through.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold != nil {
		close(s.hold)
		s.hold = nil
	}
}

// Messages returns the stored messages, newest first.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// Calls returns the requests received so far, in arrival order.
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Store) sortedLocked() []models.Message {
	out := make([]models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Handler returns the store's HTTP routes.
func (s *Store) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.fault)

	// The real store allows any origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.HealthCheck)

	r.Route("/api/message", func(r chi.Router) {
		r.Get("/", s.listMessages)
		r.Post("/", s.createMessage)
		r.Get("/{id}", s.getMessage)
		r.Delete("/{id}", s.deleteMessage)
	})

	return r
}

// NewServer starts an httptest server for the store. Close it when done.
func (s *Store) NewServer() *httptest.Server {
	return httptest.NewServer(s.Handler())
}

// record logs the call before any fault is injected so tests see every attempt.
func (s *Store) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := Call{Method: r.Method, Path: r.URL.Path, RequestID: r.Header.Get("X-Request-ID")}
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err == nil {
				c.ID, _ = strconv.ParseInt(r.PostFormValue("id"), 10, 64)
			}
		} else if tail, ok := strings.CutPrefix(r.URL.Path, "/api/message/"); ok && tail != "" {
			c.ID, _ = strconv.ParseInt(tail, 10, 64)
		}

		s.mu.Lock()
		s.calls = append(s.calls, c)
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Store) fault(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		mode, delay, hold := s.mode, s.delay, s.hold
		s.mu.RUnlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		switch mode {
		case ModeBroken:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		case ModeGarbage:
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("<html>maintenance</html>"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// listMessages handles GET /api/message/
func (s *Store) listMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Messages())
}

// getMessage handles GET /api/message/{id}
// An unknown id gets an empty 200, as the real store does.
func (s *Store) getMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	msg, ok := s.messages[id]
	s.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// createMessage handles POST /api/message/ with form fields id and message.
func (s *Store) createMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if s.rejecting() {
		writeJSON(w, http.StatusOK, CodeFailure)
		return
	}

	s.mu.Lock()
	s.messages[id] = models.Message{ID: id, Text: r.PostFormValue("message")}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, CodeSuccess)
}

// deleteMessage handles DELETE /api/message/{id}
// Deleting an unknown id still succeeds, as the real store does.
func (s *Store) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if s.rejecting() {
		writeJSON(w, http.StatusOK, CodeFailure)
		return
	}

	s.mu.Lock()
	delete(s.messages, id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, CodeSuccess)
}

func (s *Store) rejecting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode == ModeReject
}

// writeJSON is a helper function to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
