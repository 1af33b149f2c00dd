package posts

import "github.com/jpbarro/HoW-X/internal/models"

// CanModify reports whether userID may change or delete post.
// Only the author may; anonymous callers never may.
func CanModify(userID string, post *models.Post) bool {
	return userID != "" && post != nil && post.Author == userID
}
