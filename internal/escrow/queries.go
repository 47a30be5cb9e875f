package escrow

import (
	"github.com/google/uuid"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
)

// Contracts lists the caller's contracts from the read model, earliest deadline first.
// Admins see every contract.
func (s *Service) Contracts(sess *session.Session) ([]models.Contract, error) {
	if !sess.Valid() {
		return nil, unauthenticated()
	}
	if sess.IsAdmin() {
		return s.cache.Contracts(), nil
	}
	return s.cache.ContractsFor(sess.UserID), nil
}

// Contract returns one contract the caller is a party to.
func (s *Service) Contract(sess *session.Session, id uuid.UUID) (*models.Contract, error) {
	if !sess.Valid() {
		return nil, unauthenticated()
	}
	c, ok := s.cache.Contract(id)
	if !ok || !(sess.IsAdmin() || c.IsParty(sess.UserID)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found").
			WithDetails(map[string]any{"contractId": id.String()})
	}
	return &c, nil
}
