package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adi-253/msglist/internal/config"
	"github.com/adi-253/msglist/internal/metrics"
	"github.com/adi-253/msglist/internal/models"
	"github.com/adi-253/msglist/internal/storetest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, s *storetest.Store, opts ...Option) *Client {
	t.Helper()
	srv := s.NewServer()
	t.Cleanup(srv.Close)
	return NewClient(&config.Config{StoreURL: srv.URL + "/", RequestTimeout: 2 * time.Second}, opts...)
}

func TestListMessages(t *testing.T) {
	s := storetest.New(
		models.Message{ID: 1, Text: "oldest"},
		models.Message{ID: 3, Text: "newest"},
		models.Message{ID: 2, Text: "middle"},
	)
	c := newTestClient(t, s)

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Message{
		{ID: 3, Text: "newest"},
		{ID: 2, Text: "middle"},
		{ID: 1, Text: "oldest"},
	}, msgs)
}

func TestListMessagesEmpty(t *testing.T) {
	c := newTestClient(t, storetest.New())

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NotNil(t, msgs)
}

func TestGetMessage(t *testing.T) {
	c := newTestClient(t, storetest.New(models.Message{ID: 7, Text: "seven"}))

	msg, err := c.GetMessage(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &models.Message{ID: 7, Text: "seven"}, msg)

	_, err = c.GetMessage(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrConnectivity))
}

func TestAddAndDeleteMessage(t *testing.T) {
	s := storetest.New()
	c := newTestClient(t, s)
	ctx := context.Background()

	code, err := c.AddMessage(ctx, models.Message{ID: 42, Text: "hello world & more"})
	require.NoError(t, err)
	assert.True(t, code.OK())
	assert.Equal(t, []models.Message{{ID: 42, Text: "hello world & more"}}, s.Messages())

	code, err = c.DeleteMessage(ctx, 42)
	require.NoError(t, err)
	assert.True(t, code.OK())
	assert.Empty(t, s.Messages())

	// The store accepts deleting an id it does not hold
	code, err = c.DeleteMessage(ctx, 42)
	require.NoError(t, err)
	assert.True(t, code.OK())
}

func TestMutationRejected(t *testing.T) {
	s := storetest.New(models.Message{ID: 1, Text: "keep"})
	s.SetMode(storetest.ModeReject)
	c := newTestClient(t, s)
	ctx := context.Background()

	code, err := c.AddMessage(ctx, models.Message{ID: 2, Text: "nope"})
	require.NoError(t, err)
	assert.False(t, code.OK())
	assert.Equal(t, models.ResultCode("-100"), code)

	code, err = c.DeleteMessage(ctx, 1)
	require.NoError(t, err)
	assert.False(t, code.OK())

	assert.Equal(t, []models.Message{{ID: 1, Text: "keep"}}, s.Messages())
}

func TestConnectivityErrors(t *testing.T) {
	for _, mode := range []storetest.Mode{storetest.ModeBroken, storetest.ModeGarbage} {
		s := storetest.New(models.Message{ID: 1, Text: "x"})
		s.SetMode(mode)
		c := newTestClient(t, s)
		ctx := context.Background()

		_, err := c.ListMessages(ctx)
		assert.ErrorIs(t, err, ErrConnectivity, "list, mode %d", mode)

		_, err = c.GetMessage(ctx, 1)
		assert.ErrorIs(t, err, ErrConnectivity, "get, mode %d", mode)

		_, err = c.AddMessage(ctx, models.Message{ID: 2, Text: "y"})
		assert.ErrorIs(t, err, ErrConnectivity, "add, mode %d", mode)

		_, err = c.DeleteMessage(ctx, 1)
		assert.ErrorIs(t, err, ErrConnectivity, "delete, mode %d", mode)
	}
}

func TestUnreachableStore(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(&config.Config{StoreURL: url, RequestTimeout: time.Second})
	_, err := c.ListMessages(context.Background())
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestTimeoutIsConnectivityError(t *testing.T) {
	s := storetest.New()
	s.SetDelay(500 * time.Millisecond)
	srv := s.NewServer()
	t.Cleanup(srv.Close)

	c := NewClient(&config.Config{StoreURL: srv.URL, RequestTimeout: 50 * time.Millisecond})
	_, err := c.AddMessage(context.Background(), models.Message{ID: 1, Text: "slow"})
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestNullCollectionIsConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("null"))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(&config.Config{StoreURL: srv.URL})
	_, err := c.ListMessages(context.Background())
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestStringResultCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"100"`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(&config.Config{StoreURL: srv.URL})
	code, err := c.DeleteMessage(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, code.OK())
}

func TestRequestHeaders(t *testing.T) {
	s := storetest.New()
	c := newTestClient(t, s)

	ctx := WithRequestID(context.Background(), "req-123")
	_, err := c.AddMessage(ctx, models.Message{ID: 9, Text: "tagged"})
	require.NoError(t, err)
	_, err = c.ListMessages(context.Background())
	require.NoError(t, err)

	calls := s.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, storetest.Call{Method: http.MethodPost, Path: "/api/message/", ID: 9, RequestID: "req-123"}, calls[0])
	assert.Equal(t, http.MethodGet, calls[1].Method)
	assert.NotEmpty(t, calls[1].RequestID, "a request id is generated when none is set")
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Equal(t, "abc", RequestID(WithRequestID(context.Background(), "abc")))
}

func TestClientRecordsMetrics(t *testing.T) {
	rec := metrics.NewRecorder()
	s := storetest.New(models.Message{ID: 1, Text: "one"})
	c := newTestClient(t, s, WithMetrics(rec))
	ctx := context.Background()

	_, err := c.ListMessages(ctx)
	require.NoError(t, err)
	_, _ = c.GetMessage(ctx, 99)

	s.SetMode(storetest.ModeReject)
	_, err = c.AddMessage(ctx, models.Message{ID: 2, Text: "two"})
	require.NoError(t, err)

	s.SetMode(storetest.ModeBroken)
	_, err = c.DeleteMessage(ctx, 1)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.StoreRequests.WithLabelValues("list", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.StoreRequests.WithLabelValues("get", metrics.OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.StoreRequests.WithLabelValues("add", metrics.OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.StoreRequests.WithLabelValues("delete", metrics.OutcomeConnectivity)))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.PendingRequests))
}
