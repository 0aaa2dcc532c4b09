package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/supportline/internal/config"
	"github.com/zulandar/supportline/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the supportline database",
		Long:  "Migrates the chat, message, auto-reply and identity tables and seeds auto-replies from config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to supportline config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s database\n", cfg.Database.Driver)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedAutoReplies(gormDB, cfg.AutoReplies); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d auto-replies\n", len(cfg.AutoReplies))

	fmt.Fprintln(out, "\nSupportline database initialized successfully.")
	return nil
}

// connectFromConfig loads the config file and opens the database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database, logger.Warn)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}
