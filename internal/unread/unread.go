// Package unread computes the "awaiting my response" badge counts shown to
// players, guests and operators.
package unread

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/zulandar/supportline/internal/models"
)

// Actor is who is asking for counts. Exactly one of PlayerActor,
// GuestActor or OperatorActor.
type Actor interface {
	isActor()
}

// PlayerActor is a registered player.
type PlayerActor struct{ ID uint }

// GuestActor is an anonymous visitor.
type GuestActor struct{ ID string }

// OperatorActor is a back-office operator.
type OperatorActor struct{ ID uint }

func (PlayerActor) isActor()   {}
func (GuestActor) isActor()    {}
func (OperatorActor) isActor() {}

// ParseActor builds an Actor from the three mutually exclusive request
// parameters. Exactly one must be set.
func ParseActor(userID, guestID, operatorID string) (Actor, error) {
	var set []Actor
	if userID != "" {
		id, err := parseID("userId", userID)
		if err != nil {
			return nil, err
		}
		set = append(set, PlayerActor{ID: id})
	}
	if guestID = strings.TrimSpace(guestID); guestID != "" {
		set = append(set, GuestActor{ID: guestID})
	}
	if operatorID != "" {
		id, err := parseID("operatorId", operatorID)
		if err != nil {
			return nil, err
		}
		set = append(set, OperatorActor{ID: id})
	}
	if len(set) != 1 {
		return nil, models.NewValidationError("actor", "exactly one of userId, guestId, operatorId is required")
	}
	return set[0], nil
}

func parseID(field, raw string) (uint, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, models.NewValidationError(field, fmt.Sprintf("invalid id %q", raw))
	}
	return uint(n), nil
}

// Counts is the single-row badge result. Error is set only when the
// counts are fallback zeros.
type Counts struct {
	CountUser      int64  `json:"countUser"`
	CountAffiliate int64  `json:"countAffiliate"`
	CountGuest     int64  `json:"countGuest"`
	Error          string `json:"error,omitempty"`
}

// Source computes counts for an actor.
type Source interface {
	Count(ctx context.Context, a Actor) (Counts, error)
}

// Counter reads counts from the chats table.
type Counter struct {
	db *gorm.DB
}

// NewCounter creates a Counter.
func NewCounter(db *gorm.DB) *Counter {
	return &Counter{db: db}
}

// Count returns the number of chats waiting on a. Players and guests see
// their own chats in pending_user_response. Operators see chats in
// pending_admin_response that are unassigned or assigned to them, split
// by kind. An affiliate's own thread counts the other way round: it is
// waiting on the affiliate in pending_user_response.
func (c *Counter) Count(ctx context.Context, a Actor) (Counts, error) {
	switch a := a.(type) {
	case PlayerActor:
		n, err := c.count(ctx, "user_id = ?", a.ID)
		if err != nil {
			return Counts{}, err
		}
		return Counts{CountUser: n}, nil
	case GuestActor:
		n, err := c.count(ctx, "guest_id = ?", a.ID)
		if err != nil {
			return Counts{}, err
		}
		return Counts{CountGuest: n}, nil
	case OperatorActor:
		return c.operator(ctx, a.ID)
	default:
		return Counts{}, models.NewValidationError("actor", "required")
	}
}

func (c *Counter) count(ctx context.Context, where string, arg any) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(&models.Chat{}).
		Where(where, arg).
		Where("status = ?", models.StatusPendingUserResponse).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("unread: count: %w", err)
	}
	return n, nil
}

func (c *Counter) operator(ctx context.Context, operatorID uint) (Counts, error) {
	var rows []struct {
		Kind models.ChatKind
		N    int64
	}
	err := c.db.WithContext(ctx).Model(&models.Chat{}).
		Select("kind, COUNT(*) AS n").
		Where("status = ?", models.StatusPendingAdminResponse).
		Where("operator_id IS NULL OR operator_id = ?", operatorID).
		Where("affiliate_id IS NULL OR affiliate_id <> ?", operatorID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return Counts{}, fmt.Errorf("unread: count operator %d: %w", operatorID, err)
	}

	own, err := c.count(ctx, "affiliate_id = ?", operatorID)
	if err != nil {
		return Counts{}, err
	}

	out := Counts{CountAffiliate: own}
	for _, r := range rows {
		switch r.Kind {
		case models.KindUser:
			out.CountUser = r.N
		case models.KindAdmin:
			out.CountAffiliate += r.N
		case models.KindGuest:
			out.CountGuest = r.N
		}
	}
	return out, nil
}

// Fallback never fails: errors from the wrapped Source become zero counts
// carrying an error marker.
type Fallback struct {
	src Source
}

// WithDefaultOnError wraps src with the zero-on-error policy used by the
// badge endpoint.
func WithDefaultOnError(src Source) *Fallback {
	return &Fallback{src: src}
}

// Count returns src's counts, or zeros plus Error on failure.
func (f *Fallback) Count(ctx context.Context, a Actor) Counts {
	counts, err := f.src.Count(ctx, a)
	if err != nil {
		log.Printf("unread: %v", err)
		return Counts{Error: err.Error()}
	}
	return counts
}
