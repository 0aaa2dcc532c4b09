// Package identity resolves display identities and operator roles from the
// account tables. It is read-only and never used for authorization.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
)

// Identity is the display projection of a chat participant.
type Identity struct {
	Type     models.SenderType `json:"type"`
	ID       uint              `json:"id,omitempty"`
	GuestID  string            `json:"guestId,omitempty"`
	Username string            `json:"username,omitempty"`
	Fullname string            `json:"fullname,omitempty"`
	Email    string            `json:"email,omitempty"`
	Role     string            `json:"role,omitempty"`
}

// Directory looks up identities.
type Directory interface {
	// OperatorRole returns the role of operator id, or models.ErrNotFound.
	OperatorRole(ctx context.Context, id uint) (string, error)
	// Resolve returns the display identity for s. Unknown ids resolve to a
	// bare identity carrying only the type and id.
	Resolve(ctx context.Context, s models.Sender) (Identity, error)
}

// Store implements Directory against the users and admins tables.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// OperatorRole implements Directory.
func (s *Store) OperatorRole(ctx context.Context, id uint) (string, error) {
	var op models.Operator
	err := s.db.WithContext(ctx).Select("id", "role").First(&op, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("identity: operator role %d: %w", id, err)
	}
	return op.Role, nil
}

// Resolve implements Directory.
func (s *Store) Resolve(ctx context.Context, sender models.Sender) (Identity, error) {
	switch v := sender.(type) {
	case models.UserSender:
		ident := Identity{Type: models.SenderUser, ID: v.ID}
		var p models.Player
		err := s.db.WithContext(ctx).Limit(1).Find(&p, v.ID).Error
		if err != nil {
			return ident, fmt.Errorf("identity: resolve user %d: %w", v.ID, err)
		}
		ident.Username, ident.Fullname, ident.Email = p.Username, p.Fullname, p.Email
		return ident, nil
	case models.AdminSender:
		ident := Identity{Type: models.SenderAdmin, ID: v.ID}
		var op models.Operator
		err := s.db.WithContext(ctx).Limit(1).Find(&op, v.ID).Error
		if err != nil {
			return ident, fmt.Errorf("identity: resolve operator %d: %w", v.ID, err)
		}
		ident.Username, ident.Fullname, ident.Email, ident.Role = op.Username, op.Fullname, op.Email, op.Role
		return ident, nil
	case models.GuestSender:
		return Identity{Type: models.SenderGuest, GuestID: v.ID}, nil
	case models.SystemSender:
		return Identity{Type: models.SenderSystem}, nil
	}
	return Identity{}, models.NewValidationError("sender", "unknown sender")
}

// ForCounterparty maps a chat owner onto the sender variant used for lookups.
func ForCounterparty(cp models.Counterparty) models.Sender {
	switch v := cp.(type) {
	case models.UserRef:
		return models.UserSender{ID: v.ID}
	case models.AffiliateRef:
		return models.AdminSender{ID: v.ID}
	case models.GuestRef:
		return models.GuestSender{ID: v.ID}
	}
	return nil
}
