package storetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/adi-253/msglist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListSortedNewestFirst(t *testing.T) {
	s := New(models.Message{ID: 10, Text: "a"}, models.Message{ID: 30, Text: "c"}, models.Message{ID: 20, Text: "b"})

	rec := do(t, s.Handler(), http.MethodGet, "/api/message/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Equal(t, []int64{30, 20, 10}, []int64{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestCreateGetDelete(t *testing.T) {
	s := New()
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/message/", url.Values{"id": {"5"}, "message": {"hi"}})
	assert.Equal(t, "100", strings.TrimSpace(rec.Body.String()))

	rec = do(t, h, http.MethodGet, "/api/message/5", nil)
	var msg models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, models.Message{ID: 5, Text: "hi"}, msg)

	rec = do(t, h, http.MethodDelete, "/api/message/5", nil)
	assert.Equal(t, "100", strings.TrimSpace(rec.Body.String()))
	assert.Empty(t, s.Messages())

	// Unknown ids: empty get, successful delete
	rec = do(t, h, http.MethodGet, "/api/message/5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/message/5", nil)
	assert.Equal(t, "100", strings.TrimSpace(rec.Body.String()))
}

func TestCreateRequiresID(t *testing.T) {
	rec := do(t, New().Handler(), http.MethodPost, "/api/message/", url.Values{"message": {"no id"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModes(t *testing.T) {
	s := New(models.Message{ID: 1, Text: "x"})
	h := s.Handler()

	s.SetMode(ModeReject)
	rec := do(t, h, http.MethodDelete, "/api/message/1", nil)
	assert.Equal(t, "-100", strings.TrimSpace(rec.Body.String()))
	assert.Len(t, s.Messages(), 1)

	s.SetMode(ModeBroken)
	rec = do(t, h, http.MethodGet, "/api/message/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	s.SetMode(ModeGarbage)
	rec = do(t, h, http.MethodGet, "/api/message/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Error(t, json.Unmarshal(rec.Body.Bytes(), new([]models.Message)))

	s.SetMode(ModeNormal)
	rec = do(t, h, http.MethodGet, "/api/message/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCallsRecorded(t *testing.T) {
	s := New()
	s.SetMode(ModeBroken)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodDelete, "/api/message/77", nil)
	req.Header.Set("X-Request-ID", "r1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []Call{{Method: http.MethodDelete, Path: "/api/message/77", ID: 77, RequestID: "r1"}}, s.Calls())
}

func TestHoldAndRelease(t *testing.T) {
	s := New()
	srv := s.NewServer()
	defer srv.Close()

	s.Hold()
	done := make(chan int)
	go func() {
		resp, err := http.Get(srv.URL + "/api/message/")
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	select {
	case <-done:
		t.Fatal("request finished while held")
	case <-time.After(50 * time.Millisecond):
	}

	s.Release()
	assert.Equal(t, http.StatusOK, <-done)
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/message/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	New().Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, New(models.Message{ID: 1, Text: "x"}).Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, HealthResponse{Status: "ok", Messages: 1}, body)
}
