package notify

import "fmt"

// Template holds the rendered title and message for one notification kind
type Template struct {
	Title   string
	Message string
}

// NewConfession is sent to the recipient of a fresh confession
func NewConfession(college string) Template {
	return Template{
		Title:   "New Confession",
		Message: fmt.Sprintf("Someone at %s sent you a confession", college),
	}
}

// ConfessionLiked is sent to a confession's recipient when it gets a like
func ConfessionLiked(likerName string) Template {
	return Template{
		Title:   "Confession Liked",
		Message: fmt.Sprintf("%s liked a confession on your wall", likerName),
	}
}

// NewComment is sent to a confession's recipient when someone comments
func NewComment(commenterName string) Template {
	return Template{
		Title:   "New Comment",
		Message: fmt.Sprintf("%s commented on a confession on your wall", commenterName),
	}
}

// CommentLiked is sent to a comment's author when their comment gets a like
func CommentLiked() Template {
	return Template{
		Title:   "Comment Liked",
		Message: "Someone liked your comment",
	}
}

// NewReaction is sent to a confession's recipient on an emoji reaction
func NewReaction(emoji string) Template {
	return Template{
		Title:   "New Reaction",
		Message: fmt.Sprintf("Someone reacted %s to a confession on your wall", emoji),
	}
}

// Welcome greets a freshly registered user
func Welcome(username, college string) Template {
	return Template{
		Title:   "Welcome to Campus Confessions!",
		Message: fmt.Sprintf("Hey %s, your anonymous wall for %s is live. Share your confession link to start receiving confessions.", username, college),
	}
}

// CollegeAnnouncement carries an admin broadcast to a whole campus
func CollegeAnnouncement(title, message string) Template {
	return Template{
		Title:   title,
		Message: message,
	}
}

// SubscriptionExpiring warns a paying user before their tier lapses
func SubscriptionExpiring(tier string, daysLeft int) Template {
	day := "days"
	if daysLeft == 1 {
		day = "day"
	}
	return Template{
		Title:   "Subscription Expiring",
		Message: fmt.Sprintf("Your %s subscription expires in %d %s. Renew to keep your perks.", tier, daysLeft, day),
	}
}

// SubscriptionChanged confirms a tier change
func SubscriptionChanged(tier string) Template {
	return Template{
		Title:   "Subscription Updated",
		Message: fmt.Sprintf("Your subscription tier is now %s", tier),
	}
}

// RankingUpdate tells a user their campus rank moved
func RankingUpdate(rank int, college string) Template {
	return Template{
		Title:   "Ranking Update",
		Message: fmt.Sprintf("You're now ranked #%d at %s this week", rank, college),
	}
}
