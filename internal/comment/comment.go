package comment

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// MaxDepth caps reply nesting: a comment (0), a reply (1) and a reply to a
// reply (2). Deeper nesting is rejected, not silently reparented.
const MaxDepth = 2

// Comment is stored flat with a parent pointer rather than as embedded reply
// trees, which keeps deletion and authorization checks single-row.
type Comment struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ChallengeID uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Username    string     `json:"username,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Depth       int        `json:"depth" db:"depth"`
	Content     string     `json:"content" db:"content"`
	Mentions    []string   `json:"mentions,omitempty" db:"mentions"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type CreateCommentRequest struct {
	Content  string     `json:"content"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.-]+)`)

// ExtractMentions pulls @username tokens out of a comment body, deduplicated
// in first-seen order.
func ExtractMentions(content string) []string {
	seen := make(map[string]bool)
	var mentions []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			mentions = append(mentions, m[1])
		}
	}
	return mentions
}
