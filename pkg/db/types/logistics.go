package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Logistics is the optional shipping sub-record of a contract.
type Logistics struct {
	Carrier        string     `json:"carrier,omitempty"`
	TrackingNumber string     `json:"trackingNumber,omitempty"`
	PickupDate     *time.Time `json:"pickupDate,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

func (l *Logistics) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = Logistics{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("Logistics: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*l = Logistics{}
		return nil
	}
	return json.Unmarshal(raw, l)
}

func (l Logistics) Value() (driver.Value, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
