// Package users holds the user passthroughs: registration, profile edits and removal.
// Wallet balances are never written here.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/security"
)

type Service struct {
	store  userStore
	cache  userCache
	hasher passwordHasher
	logg   *logger.Logger
}

func NewService(store userStore, cache userCache, hasher passwordHasher, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store required")
	}
	if cache == nil {
		return nil, fmt.Errorf("read model cache required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: store, cache: cache, hasher: hasher, logg: logg}, nil
}

// Register creates a user with an empty wallet. Only an admin may create another admin.
func (s *Service) Register(ctx context.Context, sess *session.Session, req RegisterRequest) (*models.User, error) {
	role, err := enums.ParseUserRole(req.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	if role == enums.UserRoleAdmin && !sess.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an admin can create an admin")
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	if existing, err := s.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrWeakPassword) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password too weak")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:         email,
		Name:          name,
		Phone:         req.Phone,
		Role:          role,
		Location:      strings.TrimSpace(req.Location),
		WalletBalance: decimal.Zero,
		PasswordHash:  hash,
	}
	if err := s.store.Insert(ctx, user); err != nil {
		return nil, err
	}
	s.cache.UpsertUser(*user)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"role":    string(role),
	}), "user registered")
	return user, nil
}

// FindByEmail looks the user up in the store; a miss is NOT_FOUND.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	rows, err := s.store.ListBy(ctx, "email", normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return &rows[0], nil
}

// Profile returns the caller's cached user.
func (s *Service) Profile(sess *session.Session) (*models.User, error) {
	if !sess.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	user, ok := s.cache.User(sess.UserID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return &user, nil
}

// List returns every cached user; admins only.
func (s *Service) List(sess *session.Session) ([]models.User, error) {
	if !sess.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.cache.Users(), nil
}

// UpdateProfile patches the caller's editable fields.
func (s *Service) UpdateProfile(ctx context.Context, sess *session.Session, req UpdateProfileRequest) (*models.User, error) {
	if !sess.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
	}
	updated, err := s.store.Patch(ctx, sess.UserID, req.columns())
	if err != nil {
		return nil, err
	}
	s.cache.UpsertUser(*updated)
	return updated, nil
}

// Delete removes a user that is not party to any open contract; admins only.
func (s *Service) Delete(ctx context.Context, sess *session.Session, id uuid.UUID) error {
	if !sess.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	for _, c := range s.cache.ContractsFor(id) {
		if !c.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeConflict, "user is party to an open contract").
				WithDetails(map[string]any{"contractId": c.ID.String(), "status": string(c.Status)})
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.RemoveUser(id)
	s.logg.Info(s.logg.WithField(ctx, "user_id", id.String()), "user deleted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
