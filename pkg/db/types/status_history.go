package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// StatusEntry is one audit record of a contract transition.
type StatusEntry struct {
	Status    enums.ContractStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

// StatusHistory is stored as a JSON array, oldest first.
type StatusHistory []StatusEntry

// Last returns the newest entry; ok is false when the history is empty.
func (h StatusHistory) Last() (StatusEntry, bool) {
	if len(h) == 0 {
		return StatusEntry{}, false
	}
	return h[len(h)-1], true
}

// Append returns a new history with entry added; h is left untouched.
func (h StatusHistory) Append(entry StatusEntry) StatusHistory {
	out := make(StatusHistory, len(h), len(h)+1)
	copy(out, h)
	return append(out, entry)
}

func (h *StatusHistory) Scan(src any) error {
	if src == nil {
		*h = StatusHistory{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StatusHistory: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*h = StatusHistory{}
		return nil
	}
	var out StatusHistory
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StatusHistory: %w", err)
	}
	*h = out
	return nil
}

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]StatusEntry(h))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
