package frontier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Store layout.
const (
	KeyEntryCounter = "domain_entry_id"
	KeyUnassigned   = "domain_entry_by_timestamp"
	KeyAssigned     = "domain_entry_assigned"
	EntryKeyPrefix  = "NODE_ENTRY:"
)

// Entry record fields.
const (
	FieldURL       = "URL"
	FieldTimestamp = "timestamp"
	FieldStatus    = "assigned_status"
	FieldWorker    = "node_assignment"
)

// ErrInvalidKey is returned by ParseEntryKey for malformed keys.
var ErrInvalidKey = errors.New("frontier: invalid entry key")

// EntryKey returns the record key for id.
func EntryKey(id uint64) string {
	return EntryKeyPrefix + strconv.FormatUint(id, 10)
}

// ParseEntryKey extracts the id from an entry key. A bare decimal id is
// accepted too.
func ParseEntryKey(key string) (uint64, error) {
	raw := strings.TrimPrefix(key, EntryKeyPrefix)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	return id, nil
}
