package contracts

import (
	"time"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	dbtypes "github.com/ioproxxy/mkulima-express-sub000/pkg/db/types"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

func statusEntry(status enums.ContractStatus, at time.Time) dbtypes.StatusEntry {
	return dbtypes.StatusEntry{Status: status, Timestamp: at.UTC()}
}

// Consistent reports whether the contract's status matches the last history entry.
func Consistent(c models.Contract) bool {
	last, ok := c.StatusHistory.Last()
	return ok && last.Status == c.Status
}
