package models

// All lists every persisted model, in dependency order, for sqlite auto-migration.
func All() []any {
	return []any{
		&User{},
		&Produce{},
		&Contract{},
		&Transaction{},
		&Message{},
		&JournalEntry{},
		&OutboxEvent{},
	}
}
