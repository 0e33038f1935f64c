package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/models"
)

var revokeAdmin bool

var promoteCmd = &cobra.Command{
	Use:   "promote <username>",
	Short: "Grant or revoke college admin privileges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := findUser(args[0])
		if err != nil {
			return err
		}

		if revokeAdmin {
			if !user.IsAdmin {
				fmt.Printf("⚠️  %s is not an admin\n", user.Username)
				return nil
			}
			user.IsAdmin = false
			user.Role = models.RoleUser
		} else {
			if user.IsAdmin {
				fmt.Printf("⚠️  %s is already an admin\n", user.Username)
				return nil
			}
			user.IsAdmin = true
			user.Role = models.RoleAdmin
		}

		if err := database.DB.Save(user).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if revokeAdmin {
			fmt.Printf("✓ Admin privileges revoked for %s (%s)\n", user.Username, user.CollegeName)
		} else {
			fmt.Printf("✓ %s is now an admin of %s\n", user.Username, user.CollegeName)
		}
		return nil
	},
}

var tierDays int

var tierCmd = &cobra.Command{
	Use:   "tier <username> <basic|silver|gold|platinum>",
	Short: "Change a user's subscription tier",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := findUser(args[0])
		if err != nil {
			return err
		}

		tier := models.SubscriptionTier(args[1])
		switch tier {
		case models.TierBasic, models.TierSilver, models.TierGold, models.TierPlatinum:
		default:
			return fmt.Errorf("unknown tier %q", args[1])
		}

		user.Subscription.Tier = tier
		user.Subscription.MessageCount = 0
		if tier == models.TierBasic {
			user.Subscription.ExpiresAt = nil
			user.Subscription.AllowedColleges = nil
		} else {
			expires := time.Now().AddDate(0, 0, tierDays)
			user.Subscription.ExpiresAt = &expires
		}

		if err := database.DB.Save(user).Error; err != nil {
			return fmt.Errorf("failed to update tier: %w", err)
		}
		fmt.Printf("✓ %s is now on the %s tier\n", user.Username, tier)
		return nil
	},
}

func init() {
	promoteCmd.Flags().BoolVar(&revokeAdmin, "revoke", false, "Revoke admin privileges instead of granting")
	tierCmd.Flags().IntVar(&tierDays, "days", 30, "Subscription length in days (ignored for basic)")
}

func findUser(username string) (*models.User, error) {
	var user models.User
	if err := database.DB.Where("username = ? OR email = ?", username, username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user not found: %s", username)
	}
	return &user, nil
}
