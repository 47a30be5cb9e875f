package session

import (
	"github.com/google/uuid"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// Session is the authenticated actor handed explicitly to every core operation.
type Session struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AccessID string
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == enums.UserRoleAdmin
}

// Valid reports whether the session names a user with a known role.
func (s *Session) Valid() bool {
	return s != nil && s.UserID != uuid.Nil && s.Role.IsValid()
}
