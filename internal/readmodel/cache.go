// Package readmodel keeps the in-memory view of users, contracts, transactions and
// messages that reads are served from. It is loaded once and then patched after
// every successful write instead of being re-fetched.
package readmodel

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

// Source lists every collection in its canonical order.
type Source interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListContracts(ctx context.Context) ([]models.Contract, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	ListMessages(ctx context.Context) ([]models.Message, error)
}

type Cache struct {
	mu           sync.RWMutex
	users        []models.User
	contracts    []models.Contract
	transactions []models.Transaction
	messages     []models.Message
	messageIDs   map[uuid.UUID]struct{}
	loaded       bool
}

func New() *Cache {
	return &Cache{messageIDs: make(map[uuid.UUID]struct{})}
}

// Load replaces the whole cache from src. Every failing collection is reported; the cache is left untouched on error.
func (c *Cache) Load(ctx context.Context, src Source) error {
	users, errUsers := src.ListUsers(ctx)
	contracts, errContracts := src.ListContracts(ctx)
	transactions, errTransactions := src.ListTransactions(ctx)
	messages, errMessages := src.ListMessages(ctx)
	if err := multierr.Combine(errUsers, errContracts, errTransactions, errMessages); err != nil {
		return err
	}

	ids := make(map[uuid.UUID]struct{}, len(messages))
	for _, m := range messages {
		ids[m.ID] = struct{}{}
	}
	cloned := make([]models.Contract, len(contracts))
	for i, contract := range contracts {
		cloned[i] = contract.Clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = slices.Clone(users)
	c.contracts = cloned
	c.transactions = slices.Clone(transactions)
	c.messages = slices.Clone(messages)
	c.messageIDs = ids
	c.loaded = true
	return nil
}

// Loaded reports whether Load has completed once.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Cache) Users() []models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.users)
}

func (c *Cache) User(id uuid.UUID) (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.userIndex(id); i >= 0 {
		return c.users[i], true
	}
	return models.User{}, false
}

// UpsertUser replaces the user with the same id, or appends a new one.
func (c *Cache) UpsertUser(u models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.userIndex(u.ID); i >= 0 {
		c.users[i] = u
		return
	}
	c.users = append(c.users, u)
}

func (c *Cache) RemoveUser(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = slices.DeleteFunc(c.users, func(u models.User) bool { return u.ID == id })
}

func (c *Cache) Contracts() []models.Contract {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Contract, len(c.contracts))
	for i, contract := range c.contracts {
		out[i] = contract.Clone()
	}
	return out
}

// ContractsFor returns the contracts userID is a party of.
func (c *Cache) ContractsFor(userID uuid.UUID) []models.Contract {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.Contract{}
	for _, contract := range c.contracts {
		if contract.IsParty(userID) {
			out = append(out, contract.Clone())
		}
	}
	return out
}

func (c *Cache) Contract(id uuid.UUID) (models.Contract, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.contractIndex(id); i >= 0 {
		return c.contracts[i].Clone(), true
	}
	return models.Contract{}, false
}

// UpsertContract replaces the contract with the same id, or appends a new one.
func (c *Cache) UpsertContract(contract models.Contract) {
	contract = contract.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.contractIndex(contract.ID); i >= 0 {
		c.contracts[i] = contract
		return
	}
	c.contracts = append(c.contracts, contract)
}

func (c *Cache) Transactions() []models.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.transactions)
}

// TransactionsFor returns userID's ledger, newest first.
func (c *Cache) TransactionsFor(userID uuid.UUID) []models.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.Transaction{}
	for _, t := range c.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// PrependTransaction puts t at the head so the list stays newest first.
func (c *Cache) PrependTransaction(t models.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions = slices.Insert(c.transactions, 0, t)
}

// MessagesFor returns a contract's messages, oldest first.
func (c *Cache) MessagesFor(contractID uuid.UUID) []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.Message{}
	for _, m := range c.messages {
		if m.ContractID == contractID {
			out = append(out, m)
		}
	}
	return out
}

// AppendMessage adds m unless a message with the same id is already cached. Messages
// stay ordered by timestamp, so late arrivals from other instances land in place.
func (c *Cache) AppendMessage(m models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.messageIDs[m.ID]; seen {
		return false
	}
	c.messageIDs[m.ID] = struct{}{}
	at, _ := slices.BinarySearchFunc(c.messages, m, compareMessages)
	c.messages = slices.Insert(c.messages, at, m)
	return true
}

func compareMessages(a, b models.Message) int {
	if n := a.Timestamp.Compare(b.Timestamp); n != 0 {
		return n
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func (c *Cache) userIndex(id uuid.UUID) int {
	return slices.IndexFunc(c.users, func(u models.User) bool { return u.ID == id })
}

func (c *Cache) contractIndex(id uuid.UUID) int {
	return slices.IndexFunc(c.contracts, func(contract models.Contract) bool { return contract.ID == id })
}
