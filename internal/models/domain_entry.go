package models

import "time"

// EntryStatus is the assignment state of a DomainEntry.
type EntryStatus string

const (
	StatusUnassigned EntryStatus = "unassigned"
	StatusAssigned   EntryStatus = "assigned"
)

// Valid reports whether s is one of the known statuses.
func (s EntryStatus) Valid() bool {
	return s == StatusUnassigned || s == StatusAssigned
}

// DomainEntry is one crawl target tracked by the frontier.
type DomainEntry struct {
	ID             uint64      `json:"id"`
	Key            string      `json:"key"`
	URL            string      `json:"url"`
	CreatedAt      int64       `json:"created_at"`
	Status         EntryStatus `json:"status"`
	AssignedWorker string      `json:"assigned_worker,omitempty"`
}

// CreatedTime returns CreatedAt as a UTC time.
func (e DomainEntry) CreatedTime() time.Time {
	return time.Unix(e.CreatedAt, 0).UTC()
}
