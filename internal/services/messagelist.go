package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/adi-253/msglist/internal/idgen"
	"github.com/adi-253/msglist/internal/logger"
	"github.com/adi-253/msglist/internal/models"
	"github.com/adi-253/msglist/internal/store"
	"github.com/google/uuid"
)

// Status line texts.
const (
	StatusQueryFailed       = "Query Failed. Cannot connect to the API server."
	StatusAddOK             = "Add Successfully."
	StatusAddFailed         = "Add Failed."
	StatusAddUnreachable    = "Add Failed. Cannot connect to the API server."
	StatusDeleteOK          = "Delete Successfully."
	StatusDeleteFailed      = "Delete Failed."
	StatusDeleteUnreachable = "Delete Failed. Cannot connect to the API server."

	statusDetails = "The message details from API call: %s"
)

// MessageStore is the remote message store as used by the controller.
// *store.Client implements it.
type MessageStore interface {
	ListMessages(ctx context.Context) ([]models.Message, error)
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	AddMessage(ctx context.Context, msg models.Message) (models.ResultCode, error)
	DeleteMessage(ctx context.Context, id int64) (models.ResultCode, error)
}

// Options tune a MessageListController.
type Options struct {
	// RevertFailed undoes optimistic changes the store did not confirm.
	// When false, failed adds stay in the list marked as failed and failed
	// deletes stay removed.
	RevertFailed bool

	// IDs hands out message ids. Defaults to a generator on the system clock.
	IDs *idgen.Generator
}

// MessageListController owns the message list shown to the user and mirrors
// every change to the remote store.
//
// Local state changes are applied before the store call is made; the store's
// answer only updates the status line and the entry's sync marker. Results
// that arrive after Close, or after a newer LoadAll, are dropped.
type MessageListController struct {
	store        MessageStore
	ids          *idgen.Generator
	revertFailed bool

	mu       sync.RWMutex
	messages []models.Entry
	draft    string
	status   string
	loadGen  uint64
	closed   bool

	// mutEpoch counts adds and removes. While loads are in flight each
	// mutation is also kept in replay, so a load answered after newer local
	// changes can put them back on top of the store's collection.
	mutEpoch      uint64
	loadsInFlight int
	replay        []mutation

	// inflight holds, per message id, a channel closed when the latest
	// mutation of that id has been answered. Calls on the same id are
	// issued in the order they were made.
	inflight map[int64]chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	changes chan struct{}
}

type mutation struct {
	epoch   uint64
	id      int64
	removed bool
}

// NewMessageListController creates a controller with an empty list.
// Call LoadAll to fill it and Close when the view goes away.
func NewMessageListController(s MessageStore, opts Options) *MessageListController {
	ids := opts.IDs
	if ids == nil {
		ids = idgen.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MessageListController{
		store:        s,
		ids:          ids,
		revertFailed: opts.RevertFailed,
		messages:     []models.Entry{},
		inflight:     make(map[int64]chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		changes:      make(chan struct{}, 1),
	}
}

// State returns a copy of the current list state.
func (c *MessageListController) State() models.ListState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := make([]models.Entry, len(c.messages))
	copy(messages, c.messages)
	return models.ListState{
		Messages: messages,
		Draft:    c.draft,
		Status:   c.status,
	}
}

// Changes delivers a signal after each state change. Signals coalesce, so a
// reader sees at least one signal after the last change. The channel is
// closed by Close.
func (c *MessageListController) Changes() <-chan struct{} {
	return c.changes
}

// SetDraft replaces the text being typed.
func (c *MessageListController) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.draft == text {
		return
	}
	c.draft = text
	c.notifyLocked()
}

// LoadAll replaces the list with the store's collection.
// On failure the list is left as it was and the status line reports it.
func (c *MessageListController) LoadAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.loadGen++
	gen := c.loadGen
	since := c.mutEpoch
	c.loadsInFlight++

	c.goLocked("list", func(ctx context.Context, requestID string) {
		msgs, err := c.store.ListMessages(ctx)
		c.apply(func() {
			c.loadsInFlight--
			defer func() {
				if c.loadsInFlight == 0 {
					c.replay = nil
				}
			}()

			if gen != c.loadGen {
				logger.Debug("dropping stale load", "request_id", requestID)
				return
			}
			if err != nil {
				logger.Warn("load failed", "request_id", requestID, "err", err)
				c.status = StatusQueryFailed
				return
			}

			entries := make([]models.Entry, len(msgs))
			for i, m := range msgs {
				entries[i] = models.Entry{Message: m, Sync: models.SyncConfirmed}
				c.ids.Observe(m.ID)
			}
			c.messages = c.replayLocked(entries, since)
			logger.Info("loaded messages", "count", len(entries), "request_id", requestID)
		})
	}, nil)
}

// Add puts a new message at the top of the list and sends it to the store.
// Empty text is ignored. It returns the message that was added.
func (c *MessageListController) Add(text string) (models.Message, bool) {
	if text == "" {
		return models.Message{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.Message{}, false
	}

	msg := models.Message{ID: c.ids.NextID(), Text: text}
	prev, done := c.sequenceLocked(msg.ID)

	c.goLocked("add", func(ctx context.Context, requestID string) {
		defer done()
		awaitTurn(ctx, prev)
		code, err := c.store.AddMessage(ctx, msg)
		c.apply(func() {
			ok := false
			switch {
			case err != nil:
				logger.Warn("add failed", "id", msg.ID, "request_id", requestID, "err", err)
				c.status = StatusAddUnreachable
			case !code.OK():
				logger.Warn("add rejected", "id", msg.ID, "request_id", requestID, "code", string(code))
				c.status = StatusAddFailed
			default:
				c.status = StatusAddOK
				ok = true
			}
			c.settleAddLocked(msg.ID, requestID, ok)
		})
	}, func(requestID string) {
		entry := models.Entry{Message: msg, Sync: models.SyncPending, RequestID: requestID}
		c.messages = append([]models.Entry{entry}, c.messages...)
		c.draft = ""
		c.recordLocked(msg.ID, false)
	})

	return msg, true
}

// settleAddLocked records the store's answer on the entry created by the add
// identified by requestID. The entry may be gone already.
func (c *MessageListController) settleAddLocked(id int64, requestID string, ok bool) {
	idx := c.indexLocked(id)
	if idx < 0 || c.messages[idx].RequestID != requestID {
		return
	}
	switch {
	case ok:
		c.messages[idx].Sync = models.SyncConfirmed
		c.messages[idx].RequestID = ""
	case c.revertFailed:
		c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
	default:
		c.messages[idx].Sync = models.SyncFailed
		c.messages[idx].RequestID = ""
	}
}

// Remove drops the message with the given id from the list and deletes it
// from the store. It reports whether the id was in the list; the store is
// asked to delete it either way.
func (c *MessageListController) Remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	idx := c.indexLocked(id)
	var removed models.Entry
	if idx >= 0 {
		removed = c.messages[idx]
	}
	prev, done := c.sequenceLocked(id)

	c.goLocked("delete", func(ctx context.Context, requestID string) {
		defer done()
		awaitTurn(ctx, prev)
		code, err := c.store.DeleteMessage(ctx, id)
		c.apply(func() {
			switch {
			case err != nil:
				logger.Warn("delete failed", "id", id, "request_id", requestID, "err", err)
				c.status = StatusDeleteUnreachable
			case !code.OK():
				logger.Warn("delete rejected", "id", id, "request_id", requestID, "code", string(code))
				c.status = StatusDeleteFailed
			default:
				c.status = StatusDeleteOK
				return
			}
			if c.revertFailed && idx >= 0 && c.indexLocked(id) < 0 {
				removed.Sync = models.SyncFailed
				removed.RequestID = ""
				c.insertLocked(idx, removed)
			}
		})
	}, func(string) {
		if idx >= 0 {
			c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
		}
		c.recordLocked(id, true)
	})

	return idx >= 0
}

// FetchOne asks the store for a single message and shows it on the status line.
// The list itself is not touched.
func (c *MessageListController) FetchOne(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	prev := c.inflight[id]

	c.goLocked("get", func(ctx context.Context, requestID string) {
		awaitTurn(ctx, prev)
		msg, err := c.store.GetMessage(ctx, id)
		c.apply(func() {
			if err != nil {
				logger.Warn("fetch failed", "id", id, "request_id", requestID, "err", err)
				c.status = StatusQueryFailed
				return
			}
			c.status = fmt.Sprintf(statusDetails, msg)
		})
	}, nil)
}

// Busy reports whether an add or delete is still waiting for the store.
func (c *MessageListController) Busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.inflight) > 0
}

// Wait blocks until every store call started so far has been answered.
func (c *MessageListController) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight store calls and stops applying their results.
// The controller cannot be used afterwards.
func (c *MessageListController) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	close(c.changes)
	c.mu.Unlock()
	return nil
}

// goLocked applies local, then runs call on its own goroutine with a fresh
// request id. c.mu must be held.
func (c *MessageListController) goLocked(op string, call func(ctx context.Context, requestID string), local func(requestID string)) {
	requestID := uuid.NewString()
	if local != nil {
		local(requestID)
		c.notifyLocked()
	}

	ctx := store.WithRequestID(c.ctx, requestID)
	logger.Debug("store call started", "op", op, "request_id", requestID)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		call(ctx, requestID)
	}()
}

// recordLocked notes an add or remove of id for loads still in flight.
func (c *MessageListController) recordLocked(id int64, removed bool) {
	c.mutEpoch++
	if c.loadsInFlight > 0 {
		c.replay = append(c.replay, mutation{epoch: c.mutEpoch, id: id, removed: removed})
	}
}

// replayLocked applies the adds and removes made after epoch since to a
// freshly loaded collection. Added entries are taken from the current list,
// so their sync marker and request id carry over; adds already undone
// locally are skipped.
func (c *MessageListController) replayLocked(loaded []models.Entry, since uint64) []models.Entry {
	for _, m := range c.replay {
		if m.epoch <= since {
			continue
		}
		at := -1
		for i, e := range loaded {
			if e.ID == m.id {
				at = i
				break
			}
		}

		if m.removed {
			if at >= 0 {
				loaded = append(loaded[:at], loaded[at+1:]...)
			}
			continue
		}
		if at >= 0 {
			continue
		}
		if idx := c.indexLocked(m.id); idx >= 0 {
			loaded = append([]models.Entry{c.messages[idx]}, loaded...)
		}
	}
	return loaded
}

// apply runs fn under the lock unless the controller has been closed.
func (c *MessageListController) apply(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	fn()
	c.notifyLocked()
}

func (c *MessageListController) notifyLocked() {
	if c.closed {
		return
	}
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// sequenceLocked registers a mutation of id. The returned channel, if not
// nil, is closed once the previous mutation of id has been answered; done
// must be called when this mutation has been answered.
func (c *MessageListController) sequenceLocked(id int64) (<-chan struct{}, func()) {
	prev := c.inflight[id]
	ch := make(chan struct{})
	c.inflight[id] = ch
	return prev, func() {
		close(ch)
		c.mu.Lock()
		if c.inflight[id] == ch {
			delete(c.inflight, id)
		}
		c.mu.Unlock()
	}
}

func awaitTurn(ctx context.Context, prev <-chan struct{}) {
	if prev == nil {
		return
	}
	select {
	case <-prev:
	case <-ctx.Done():
	}
}

func (c *MessageListController) indexLocked(id int64) int {
	for i, e := range c.messages {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (c *MessageListController) insertLocked(idx int, e models.Entry) {
	if idx > len(c.messages) {
		idx = len(c.messages)
	}
	c.messages = append(c.messages, models.Entry{})
	copy(c.messages[idx+1:], c.messages[idx:])
	c.messages[idx] = e
}
