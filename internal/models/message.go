package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Message is a single entry of the message list.
// The remote store keys messages by a client-assigned numeric id.
type Message struct {
	// ID is assigned by the client from a millisecond clock
	ID int64 `json:"id"`

	// Text is the message body. The store calls this field "message".
	Text string `json:"message"`
}

// String renders the message the way the status line shows it.
func (m Message) String() string {
	return fmt.Sprintf("id - %d, message - %s", m.ID, m.Text)
}

// ResultSuccess is the code the store returns when a create or delete was applied.
const ResultSuccess ResultCode = "100"

// ResultCode is the opaque application result returned by the store for
// create and delete calls. Only ResultSuccess has a defined meaning.
type ResultCode string

// OK reports whether the store applied the mutation.
func (c ResultCode) OK() bool {
	return c == ResultSuccess
}

// UnmarshalJSON accepts both a JSON number (100) and a JSON string ("100").
// Integral numbers are normalised, so 100.0 and 1e2 decode to "100".
func (c *ResultCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("empty result code")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ResultCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid result code %q: %w", data, err)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*c = ResultCode(strconv.FormatInt(i, 10))
		return nil
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		*c = ResultCode(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*c = ResultCode(n.String())
	return nil
}

// SyncState tracks whether a local change has been confirmed by the store.
type SyncState int

const (
	// SyncConfirmed entries are known to match the store
	SyncConfirmed SyncState = iota
	// SyncPending entries wait for the store to answer
	SyncPending
	// SyncFailed entries were rejected or never reached the store
	SyncFailed
)

func (s SyncState) String() string {
	switch s {
	case SyncConfirmed:
		return "confirmed"
	case SyncPending:
		return "pending"
	case SyncFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is a message as held in the local list, with its sync marker.
type Entry struct {
	Message

	// Sync is the confirmation state of the last mutation touching this entry
	Sync SyncState `json:"-"`

	// RequestID identifies the in-flight store call, empty once settled
	RequestID string `json:"-"`
}

// ListState is a snapshot of the controller state handed to views.
type ListState struct {
	Messages []Entry
	Draft    string
	Status   string
}
