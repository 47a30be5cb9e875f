package enums

// JournalStatus tracks how far an escrow operation got through its write sequence.
type JournalStatus string

const (
	JournalStatusPending            JournalStatus = "pending"
	JournalStatusWalletApplied      JournalStatus = "wallet_applied"
	JournalStatusCommitted          JournalStatus = "committed"
	JournalStatusFailed             JournalStatus = "failed"
	JournalStatusCompensated        JournalStatus = "compensated"
	JournalStatusCompensationFailed JournalStatus = "compensation_failed"
)

// IsOpen reports whether the entry still needs attention.
func (s JournalStatus) IsOpen() bool {
	return s == JournalStatusPending || s == JournalStatusWalletApplied || s == JournalStatusCompensationFailed
}
