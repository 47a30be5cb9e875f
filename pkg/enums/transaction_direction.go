package enums

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionDirection marks whether a wallet entry added or removed funds.
type TransactionDirection string

const (
	TransactionDirectionCredit TransactionDirection = "CREDIT"
	TransactionDirectionDebit  TransactionDirection = "DEBIT"
)

// DirectionFor derives the direction from the sign of a balance delta.
func DirectionFor(delta decimal.Decimal) TransactionDirection {
	if delta.IsNegative() {
		return TransactionDirectionDebit
	}
	return TransactionDirectionCredit
}

// IsValid reports whether the value is a known TransactionDirection.
func (d TransactionDirection) IsValid() bool {
	return d == TransactionDirectionCredit || d == TransactionDirectionDebit
}

// ParseTransactionDirection converts raw input into a TransactionDirection.
func ParseTransactionDirection(value string) (TransactionDirection, error) {
	d := TransactionDirection(value)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid transaction direction %q", value)
	}
	return d, nil
}
