package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
)

var statsCollege string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show platform or per-college counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := func(table string) int64 {
			var n int64
			db := database.DB.Table(table)
			if statsCollege != "" {
				db = db.Where("college_name = ?", statsCollege)
			}
			db.Count(&n)
			return n
		}

		users := scope("users")
		confessions := scope("confessions")
		likes := scope("likes")

		var hidden, pending int64
		hiddenQ := database.DB.Model(&models.Confession{}).Where("is_hidden = ?", true)
		pendingQ := database.DB.Model(&models.ReportedConfession{}).Where("status = ?", models.ReportStatusPending)
		if statsCollege != "" {
			hiddenQ = hiddenQ.Where("college_name = ?", statsCollege)
			pendingQ = pendingQ.Where("college_name = ?", statsCollege)
		}
		hiddenQ.Count(&hidden)
		pendingQ.Count(&pending)

		label := "platform"
		if statsCollege != "" {
			label = statsCollege
		}
		fmt.Printf("Stats for %s:\n", label)
		fmt.Printf("  users:               %d\n", users)
		fmt.Printf("  confessions:         %d\n", confessions)
		fmt.Printf("  hidden confessions:  %d\n", hidden)
		fmt.Printf("  likes:               %d\n", likes)
		fmt.Printf("  pending reports:     %d\n", pending)
		return nil
	},
}

var announceCmd = &cobra.Command{
	Use:   "announce <college> <title> <message>",
	Short: "Send an announcement notification to every user at a college",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		notifier := notify.NewService(nil, nil)
		sent, err := notifier.SendToCollege(context.Background(), args[0],
			notify.CollegeAnnouncement(args[1], args[2]), nil)
		if err != nil {
			return fmt.Errorf("failed to send announcement: %w", err)
		}
		fmt.Printf("✓ Announcement delivered to %d users at %s\n", sent, args[0])
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsCollege, "college", "", "Limit stats to one college")
}
