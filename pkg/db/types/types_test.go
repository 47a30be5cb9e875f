package dbtypes

import (
	"testing"
	"time"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHistoryScanValue(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	history := StatusHistory{{Status: enums.ContractStatusPending, Timestamp: at}}

	value, err := history.Value()
	require.NoError(t, err)

	var scanned StatusHistory
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 1)
	assert.Equal(t, enums.ContractStatusPending, scanned[0].Status)
	assert.True(t, scanned[0].Timestamp.Equal(at))

	require.NoError(t, scanned.Scan([]byte(`[{"status":"ACTIVE","timestamp":"2026-03-02T00:00:00Z"}]`)))
	last, ok := scanned.Last()
	require.True(t, ok)
	assert.Equal(t, enums.ContractStatusActive, last.Status)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))
}

func TestStatusHistoryAppendDoesNotAlias(t *testing.T) {
	base := make(StatusHistory, 1, 4)
	base[0] = StatusEntry{Status: enums.ContractStatusPending}

	a := base.Append(StatusEntry{Status: enums.ContractStatusActive})
	b := base.Append(StatusEntry{Status: enums.ContractStatusCancelled})

	assert.Len(t, base, 1)
	assert.Equal(t, enums.ContractStatusActive, a[1].Status)
	assert.Equal(t, enums.ContractStatusCancelled, b[1].Status)
}

func TestLogisticsScanValue(t *testing.T) {
	pickup := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	in := Logistics{Carrier: "Kobo Trucks", TrackingNumber: "KT-118", PickupDate: &pickup}

	value, err := in.Value()
	require.NoError(t, err)

	var out Logistics
	require.NoError(t, out.Scan(value))
	assert.Equal(t, "Kobo Trucks", out.Carrier)
	assert.Equal(t, "KT-118", out.TrackingNumber)
	require.NotNil(t, out.PickupDate)
	assert.True(t, out.PickupDate.Equal(pickup))
}
