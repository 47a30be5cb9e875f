package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/enums"
)

// UserDTO is the transport shape of a user. Credentials never leave the service.
type UserDTO struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         *string        `json:"phone,omitempty"`
	Role          enums.UserRole `json:"role"`
	Location      string         `json:"location"`
	Rating        float64        `json:"rating"`
	WalletBalance string         `json:"walletBalance"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// RegisterRequest is the payload for creating a user.
type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
	Role     string  `json:"role" validate:"required"`
	Location string  `json:"location" validate:"max=120"`
}

// UpdateProfileRequest carries the editable profile fields. Nil fields are left alone.
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=120"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		Location:      u.Location,
		Rating:        u.Rating,
		WalletBalance: u.WalletBalance.StringFixed(2),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func FromModels(rows []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func (u UpdateProfileRequest) columns() map[string]any {
	cols := map[string]any{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Phone != nil {
		cols["phone"] = *u.Phone
	}
	if u.Location != nil {
		cols["location"] = *u.Location
	}
	return cols
}
