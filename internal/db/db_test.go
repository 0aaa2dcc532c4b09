package db

import (
	"strings"
	"testing"

	"github.com/zulandar/supportline/internal/config"
	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, logger.Silent)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gormDB
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "default local",
			cfg:  config.DatabaseConfig{Host: "127.0.0.1", Port: 3306, User: "root", Name: "supportline"},
			want: "root@tcp(127.0.0.1:3306)/supportline?parseTime=true",
		},
		{
			name: "with password",
			cfg:  config.DatabaseConfig{Host: "db.internal", Port: 3307, User: "support", Password: "s3cret", Name: "casino"},
			want: "support:s3cret@tcp(db.internal:3307)/casino?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.cfg)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSQLiteDSN_ForeignKeys(t *testing.T) {
	dsn := SQLiteDSN("/tmp/x.db")
	if !strings.Contains(dsn, "_foreign_keys=on") {
		t.Errorf("SQLiteDSN missing foreign key flag: %s", dsn)
	}
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 5 {
		t.Errorf("AllModels() returned %d models, want 5", got)
	}
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	gormDB := openMemoryDB(t)
	for _, table := range []string{"users", "admins", "chats", "messages", "auto_replies"} {
		if !gormDB.Migrator().HasTable(table) {
			t.Errorf("table %s not created", table)
		}
	}
	if err := Ping(gormDB); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSeedAutoReplies_Upsert(t *testing.T) {
	gormDB := openMemoryDB(t)
	inactive := false

	err := SeedAutoReplies(gormDB, []config.AutoReplyConfig{
		{Keyword: "hi", Reply: "Welcome!"},
		{Keyword: "bonus", Reply: "See promotions.", Active: &inactive},
	})
	if err != nil {
		t.Fatalf("SeedAutoReplies: %v", err)
	}

	var bonus models.AutoReply
	if err := gormDB.Where("keyword = ?", "bonus").First(&bonus).Error; err != nil {
		t.Fatalf("load bonus: %v", err)
	}
	if bonus.IsActive {
		t.Error("bonus should be seeded inactive")
	}

	// Re-seed with a changed reply; row count must not grow.
	err = SeedAutoReplies(gormDB, []config.AutoReplyConfig{
		{Keyword: "hi", Reply: "Hello again!"},
	})
	if err != nil {
		t.Fatalf("SeedAutoReplies (second): %v", err)
	}

	var count int64
	gormDB.Model(&models.AutoReply{}).Count(&count)
	if count != 2 {
		t.Errorf("auto reply count = %d, want 2", count)
	}
	var hi models.AutoReply
	gormDB.Where("keyword = ?", "hi").First(&hi)
	if hi.ReplyMessage != "Hello again!" {
		t.Errorf("hi.ReplyMessage = %q, want %q", hi.ReplyMessage, "Hello again!")
	}
}

func TestSeedAutoReplies_Empty(t *testing.T) {
	// Empty input is a no-op and never touches the DB.
	if err := SeedAutoReplies(nil, nil); err != nil {
		t.Errorf("SeedAutoReplies(nil, nil) = %v, want nil", err)
	}
}

func TestConnect_MySQLError(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	_, err := Connect(config.DatabaseConfig{Driver: "mysql", Host: "127.0.0.1", Port: 1, User: "root", Name: "x"}, logger.Silent)
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: connect") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: connect")
	}
}
