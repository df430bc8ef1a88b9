// Package ranking computes leaderboard positions from the ranked user list.
//
// Both functions are pure: they take the user list already ordered by the
// ranking key (points descending, older accounts first) and derive positions
// on every read. Nothing is stored.
package ranking

import "github.com/tkhr/ecopoints/internal/models"

// RankOf returns the 1-based leaderboard position of user within users.
// Users with equal points share a rank: the position is one more than the
// count of users holding strictly more points.
func RankOf(user *models.User, users []*models.User) int {
	rank := 1
	for _, u := range users {
		if u.Points > user.Points {
			rank++
		}
	}
	return rank
}

// TopN returns the first n users of the ranked list. It returns the whole
// list when fewer than n users exist.
func TopN(users []*models.User, n int) []*models.User {
	if n < 0 {
		n = 0
	}
	if n > len(users) {
		n = len(users)
	}
	return users[:n]
}
