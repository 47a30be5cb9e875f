package enums

import "fmt"

// ContractStatus tracks the escrow lifecycle of a contract.
type ContractStatus string

const (
	ContractStatusPending           ContractStatus = "PENDING"
	ContractStatusActive            ContractStatus = "ACTIVE"
	ContractStatusDeliveryConfirmed ContractStatus = "DELIVERY_CONFIRMED"
	ContractStatusPaymentReleased   ContractStatus = "PAYMENT_RELEASED"
	ContractStatusCompleted         ContractStatus = "COMPLETED"
	ContractStatusCancelled         ContractStatus = "CANCELLED"
	ContractStatusDisputed          ContractStatus = "DISPUTED"
)

var validContractStatuses = []ContractStatus{
	ContractStatusPending,
	ContractStatusActive,
	ContractStatusDeliveryConfirmed,
	ContractStatusPaymentReleased,
	ContractStatusCompleted,
	ContractStatusCancelled,
	ContractStatusDisputed,
}

// String implements fmt.Stringer.
func (s ContractStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ContractStatus.
func (s ContractStatus) IsValid() bool {
	for _, candidate := range validContractStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave the status.
func (s ContractStatus) IsTerminal() bool {
	return s == ContractStatusCompleted || s == ContractStatusCancelled
}

// ParseContractStatus converts raw input into a ContractStatus.
func ParseContractStatus(value string) (ContractStatus, error) {
	for _, candidate := range validContractStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract status %q", value)
}
