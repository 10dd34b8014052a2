package models

import "time"

// ClaimEvent is published after a worker successfully claims an entry.
type ClaimEvent struct {
	EntryKey  string    `json:"entry_key"`
	EntryID   uint64    `json:"entry_id"`
	URL       string    `json:"url"`
	WorkerID  string    `json:"worker_id"`
	CreatedAt int64     `json:"created_at"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// NewClaimEvent builds the event for a freshly claimed entry.
func NewClaimEvent(entry DomainEntry, claimedAt time.Time) ClaimEvent {
	return ClaimEvent{
		EntryKey:  entry.Key,
		EntryID:   entry.ID,
		URL:       entry.URL,
		WorkerID:  entry.AssignedWorker,
		CreatedAt: entry.CreatedAt,
		ClaimedAt: claimedAt.UTC(),
	}
}
