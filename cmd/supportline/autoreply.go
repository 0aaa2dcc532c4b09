package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/supportline/internal/autoreply"
)

func newAutoReplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "autoreply",
		Aliases: []string{"ar"},
		Short:   "Manage keyword auto-replies",
	}

	cmd.AddCommand(newAutoReplyListCmd())
	cmd.AddCommand(newAutoReplyAddCmd())
	cmd.AddCommand(newAutoReplyToggleCmd("enable", "Enable an auto-reply", true))
	cmd.AddCommand(newAutoReplyToggleCmd("disable", "Disable an auto-reply", false))
	cmd.AddCommand(newAutoReplyRemoveCmd())
	return cmd
}

func newAutoReplyListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List auto-replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutoReplyList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to supportline config file")
	return cmd
}

func runAutoReplyList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	rows, err := autoreply.List(context.Background(), gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No auto-replies found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKEYWORD\tACTIVE\tREPLY")
	for _, ar := range rows {
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", ar.ID, ar.Keyword, ar.IsActive, truncate(ar.ReplyMessage, 50))
	}
	w.Flush()
	return nil
}

func newAutoReplyAddCmd() *cobra.Command {
	var (
		configPath string
		inactive   bool
	)

	cmd := &cobra.Command{
		Use:   "add <keyword> <reply>",
		Short: "Add an auto-reply",
		Long:  "Adds a keyword auto-reply. A message matches only when its whole text equals the keyword.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			ar, err := autoreply.Create(context.Background(), gormDB, args[0], args[1], !inactive)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created auto-reply %d for %q\n", ar.ID, ar.Keyword)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to supportline config file")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the auto-reply disabled")
	return cmd
}

func newAutoReplyToggleCmd(use, short string, active bool) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			ar, err := autoreply.SetActive(context.Background(), gormDB, id, active)
			if err != nil {
				return fmt.Errorf("auto-reply %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Auto-reply %d (%q) active=%t\n", ar.ID, ar.Keyword, ar.IsActive)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to supportline config file")
	return cmd
}

func newAutoReplyRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an auto-reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := autoreply.Delete(context.Background(), gormDB, id); err != nil {
				return fmt.Errorf("auto-reply %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted auto-reply %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to supportline config file")
	return cmd
}

func parseID(raw string) (uint, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(n), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
