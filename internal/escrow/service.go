// Package escrow orchestrates the contract lifecycle: it checks the caller, plans the
// transition with the state machine, moves money through the wallet, persists the
// contract and patches the read model, in that order.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/lock"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/metrics"
)

// Deps wires the orchestrator's collaborators. Remote and Metrics are optional.
type Deps struct {
	Contracts contractStore
	Users     userReader
	Produce   produceReader
	Journal   journal
	Wallet    walletAdjuster
	Cache     contractCache
	Local     *lock.Keyed
	Remote    distributedLock
	LockKey   func(contractID string) string
	Metrics   *metrics.EscrowMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type Service struct {
	contracts contractStore
	users     userReader
	produce   produceReader
	journal   journal
	wallet    walletAdjuster
	cache     contractCache
	local     *lock.Keyed
	remote    distributedLock
	lockKey   func(string) string
	metrics   *metrics.EscrowMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Contracts == nil:
		return nil, fmt.Errorf("contract store required")
	case deps.Users == nil:
		return nil, fmt.Errorf("user reader required")
	case deps.Produce == nil:
		return nil, fmt.Errorf("produce reader required")
	case deps.Journal == nil:
		return nil, fmt.Errorf("journal required")
	case deps.Wallet == nil:
		return nil, fmt.Errorf("wallet required")
	case deps.Cache == nil:
		return nil, fmt.Errorf("read model cache required")
	}
	svc := &Service{
		contracts: deps.Contracts,
		users:     deps.Users,
		produce:   deps.Produce,
		journal:   deps.Journal,
		wallet:    deps.Wallet,
		cache:     deps.Cache,
		local:     deps.Local,
		remote:    deps.Remote,
		lockKey:   deps.LockKey,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		now:       deps.Now,
	}
	if svc.local == nil {
		svc.local = lock.NewKeyed()
	}
	if svc.lockKey == nil {
		svc.lockKey = func(id string) string { return "escrow:contract:" + id }
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc, nil
}

// serialize runs fn while holding the contract's in-process lock and, when configured,
// its distributed lock. It reports whether the distributed lock was taken.
func (s *Service) serialize(ctx context.Context, contractID uuid.UUID, fn func(distributed bool) error) error {
	unlock := s.local.Lock(contractID.String())
	defer unlock()

	if s.remote == nil {
		return fn(false)
	}
	handle, err := s.remote.Acquire(ctx, s.lockKey(contractID.String()))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return pkgerrors.New(pkgerrors.CodeConflict, "contract is busy, try again").
				WithDetails(map[string]any{"contractId": contractID.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "acquire contract lock")
	}
	defer func() {
		if relErr := handle.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"contract_id": contractID.String(),
				"error":       relErr.Error(),
			}), "release contract lock failed")
		}
	}()
	return fn(true)
}

func (s *Service) observe(operation string, started time.Time, err error) {
	outcome := ""
	if err != nil {
		outcome = string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			outcome = string(typed.Code())
		}
	}
	s.metrics.Observe(operation, outcome, s.now().Sub(started))
}
