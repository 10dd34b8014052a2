package frontier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"relentless-frontier/internal/models"
	"relentless-frontier/internal/store"
)

// ErrInvalidURL is returned by Create for URLs that are not absolute http(s).
var ErrInvalidURL = errors.New("frontier: url must be absolute http or https")

// EntryStore maps entry keys to their hash records. It never updates or
// deletes a record; state transitions happen only inside the Claimer.
type EntryStore struct {
	store store.Store
	ids   *IDAllocator
	now   func() time.Time
}

func NewEntryStore(st store.Store, ids *IDAllocator, now func() time.Time) *EntryStore {
	if now == nil {
		now = time.Now
	}
	return &EntryStore{store: st, ids: ids, now: now}
}

// ValidateURL reports whether raw is acceptable as a crawl target.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// Create allocates an id and writes a new unassigned record in one call.
func (s *EntryStore) Create(ctx context.Context, rawURL string) (models.DomainEntry, error) {
	if err := ValidateURL(rawURL); err != nil {
		return models.DomainEntry{}, err
	}
	id, err := s.ids.Next(ctx)
	if err != nil {
		return models.DomainEntry{}, err
	}
	entry := models.DomainEntry{
		ID:        id,
		Key:       EntryKey(id),
		URL:       rawURL,
		CreatedAt: s.now().Unix(),
		Status:    models.StatusUnassigned,
	}
	if err := s.store.SetHashFields(ctx, entry.Key, encodeEntry(entry)); err != nil {
		return models.DomainEntry{}, err
	}
	return entry, nil
}

// ReadStatus returns the status of key; ok is false when the record or the
// field does not exist.
func (s *EntryStore) ReadStatus(ctx context.Context, key string) (models.EntryStatus, bool, error) {
	raw, ok, err := s.store.GetHashField(ctx, key, FieldStatus)
	if err != nil || !ok {
		return "", false, err
	}
	return models.EntryStatus(raw), true, nil
}

func (s *EntryStore) ReadField(ctx context.Context, key, field string) (string, bool, error) {
	return s.store.GetHashField(ctx, key, field)
}

// Get loads the whole record for key.
func (s *EntryStore) Get(ctx context.Context, key string) (models.DomainEntry, bool, error) {
	fields, err := s.store.GetHashFields(ctx, key)
	if err != nil {
		return models.DomainEntry{}, false, err
	}
	if len(fields) == 0 {
		return models.DomainEntry{}, false, nil
	}
	entry, err := decodeEntry(key, fields)
	if err != nil {
		return models.DomainEntry{}, false, err
	}
	return entry, true, nil
}

func encodeEntry(e models.DomainEntry) map[string]string {
	return map[string]string{
		FieldURL:       e.URL,
		FieldTimestamp: strconv.FormatInt(e.CreatedAt, 10),
		FieldStatus:    string(e.Status),
		FieldWorker:    e.AssignedWorker,
	}
}

func decodeEntry(key string, fields map[string]string) (models.DomainEntry, error) {
	id, err := ParseEntryKey(key)
	if err != nil {
		return models.DomainEntry{}, &store.OperationError{Op: "decode", Key: key, Err: err}
	}
	ts, err := strconv.ParseInt(fields[FieldTimestamp], 10, 64)
	if err != nil {
		return models.DomainEntry{}, &store.OperationError{Op: "decode", Key: key, Err: fmt.Errorf("bad %s: %w", FieldTimestamp, err)}
	}
	status := models.EntryStatus(fields[FieldStatus])
	if !status.Valid() {
		return models.DomainEntry{}, &store.OperationError{Op: "decode", Key: key, Err: fmt.Errorf("unknown %s %q", FieldStatus, status)}
	}
	return models.DomainEntry{
		ID:             id,
		Key:            key,
		URL:            fields[FieldURL],
		CreatedAt:      ts,
		Status:         status,
		AssignedWorker: fields[FieldWorker],
	}, nil
}
