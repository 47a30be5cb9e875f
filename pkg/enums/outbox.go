package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateContract OutboxAggregateType = "contract"
	AggregateUser     OutboxAggregateType = "user"
	AggregateWallet   OutboxAggregateType = "wallet"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateContract,
	AggregateUser,
	AggregateWallet,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names the domain event carried by an outbox row.
type OutboxEventType string

const (
	EventContractProposed      OutboxEventType = "contract_proposed"
	EventContractStatusChanged OutboxEventType = "contract_status_changed"
	EventContractUpdated       OutboxEventType = "contract_updated"
	EventWalletAdjusted        OutboxEventType = "wallet_adjusted"
	EventUserRegistered        OutboxEventType = "user_registered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventContractProposed,
	EventContractStatusChanged,
	EventContractUpdated,
	EventWalletAdjusted,
	EventUserRegistered,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
