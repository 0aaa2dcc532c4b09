package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Backlog counts chats currently waiting on the admin desk.
type Backlog struct {
	Total  int64
	ByKind map[models.ChatKind]int64
	Oldest *time.Time // least recently updated waiting chat
}

// BuildBacklog queries the waiting chats.
func BuildBacklog(ctx context.Context, db *gorm.DB) (*Backlog, error) {
	var rows []struct {
		Kind  models.ChatKind
		Count int64
	}
	err := db.WithContext(ctx).Model(&models.Chat{}).
		Select("kind, COUNT(*) AS count").
		Where("status = ?", models.StatusPendingAdminResponse).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("notify: backlog: %w", err)
	}

	b := &Backlog{ByKind: make(map[models.ChatKind]int64)}
	for _, r := range rows {
		b.ByKind[r.Kind] = r.Count
		b.Total += r.Count
	}
	if b.Total == 0 {
		return b, nil
	}

	var oldest []models.Chat
	err = db.WithContext(ctx).Select("id", "updated_at").
		Where("status = ?", models.StatusPendingAdminResponse).
		Order("updated_at ASC").Limit(1).Find(&oldest).Error
	if err != nil {
		return nil, fmt.Errorf("notify: backlog oldest: %w", err)
	}
	if len(oldest) == 1 {
		at := oldest[0].UpdatedAt
		b.Oldest = &at
	}
	return b, nil
}

// Digest posts the backlog on a cron schedule.
type Digest struct {
	db       *gorm.DB
	dispatch *Dispatcher
	schedule cron.Schedule
}

// NewDigest parses expr and creates a Digest.
func NewDigest(db *gorm.DB, dispatch *Dispatcher, expr string) (*Digest, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("notify: digest schedule %q: %w", expr, err)
	}
	return &Digest{db: db, dispatch: dispatch, schedule: sched}, nil
}

// Next returns the first fire time after t.
func (g *Digest) Next(t time.Time) time.Time {
	return g.schedule.Next(t)
}

// RunOnce builds and sends one digest. An empty backlog sends nothing and
// reports false.
func (g *Digest) RunOnce(ctx context.Context) (bool, error) {
	b, err := BuildBacklog(ctx, g.db)
	if err != nil {
		return false, err
	}
	if b.Total == 0 {
		return false, nil
	}
	if err := g.dispatch.Send(ctx, FormatBacklog(b)); err != nil {
		return false, err
	}
	return true, nil
}

// Run blocks, sending a digest at every scheduled time until ctx is
// cancelled. Failures are logged and the loop continues.
func (g *Digest) Run(ctx context.Context) {
	for {
		wait := time.Until(g.schedule.Next(time.Now()))
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := g.RunOnce(ctx); err != nil {
			log.Printf("notify: digest: %v", err)
		}
	}
}
