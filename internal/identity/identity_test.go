package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/zulandar/supportline/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openIdentityTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Player{}, &models.Operator{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	db.Create(&models.Player{ID: 7, Username: "lucky7", Fullname: "Lucky Seven", Email: "l7@example.com"})
	db.Create(&models.Operator{ID: 2, Username: "aff-jane", Email: "jane@partners.example", Role: "affiliate"})
	return db
}

func TestStore_OperatorRole(t *testing.T) {
	s := NewStore(openIdentityTestDB(t))

	role, err := s.OperatorRole(context.Background(), 2)
	if err != nil {
		t.Fatalf("OperatorRole: %v", err)
	}
	if role != "affiliate" {
		t.Errorf("role = %q, want affiliate", role)
	}

	_, err = s.OperatorRole(context.Background(), 99)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("OperatorRole(99) error = %v, want ErrNotFound", err)
	}
}

func TestStore_Resolve(t *testing.T) {
	s := NewStore(openIdentityTestDB(t))
	ctx := context.Background()

	user, err := s.Resolve(ctx, models.UserSender{ID: 7})
	if err != nil {
		t.Fatalf("Resolve user: %v", err)
	}
	if user.Username != "lucky7" || user.Email != "l7@example.com" {
		t.Errorf("user = %+v", user)
	}

	op, err := s.Resolve(ctx, models.AdminSender{ID: 2})
	if err != nil {
		t.Fatalf("Resolve operator: %v", err)
	}
	if op.Role != "affiliate" || op.Username != "aff-jane" {
		t.Errorf("operator = %+v", op)
	}

	missing, err := s.Resolve(ctx, models.UserSender{ID: 404})
	if err != nil {
		t.Fatalf("Resolve missing user: %v", err)
	}
	if missing.ID != 404 || missing.Username != "" {
		t.Errorf("missing user = %+v, want bare identity", missing)
	}

	guest, _ := s.Resolve(ctx, models.GuestSender{ID: "visitor-1"})
	if guest.GuestID != "visitor-1" || guest.Type != models.SenderGuest {
		t.Errorf("guest = %+v", guest)
	}

	sys, _ := s.Resolve(ctx, models.SystemSender{})
	if sys.Type != models.SenderSystem {
		t.Errorf("system = %+v", sys)
	}
}

func TestForCounterparty(t *testing.T) {
	if got := ForCounterparty(models.AffiliateRef{ID: 3}); got != (models.AdminSender{ID: 3}) {
		t.Errorf("ForCounterparty(affiliate) = %#v", got)
	}
	if got := ForCounterparty(models.GuestRef{ID: "g"}); got != (models.GuestSender{ID: "g"}) {
		t.Errorf("ForCounterparty(guest) = %#v", got)
	}
}
