package tipster

import (
	"errors"
	"strconv"
	"strings"
)

var ErrMissingIdentity = errors.New("tipster has neither id nor slug")

// Tipster is a content author who publishes betting tips. Identity is the
// upstream numeric id when available, the slug otherwise.
type Tipster struct {
	ID          int64
	Slug        string
	Name        string
	AvatarURL   string
	Description string
}

// Key returns the deduplication identity used for roster merging.
func (t Tipster) Key() string {
	if t.ID > 0 {
		return "id:" + strconv.FormatInt(t.ID, 10)
	}
	return "slug:" + strings.ToLower(strings.TrimSpace(t.Slug))
}

func (t Tipster) Validate() error {
	if t.ID <= 0 && strings.TrimSpace(t.Slug) == "" {
		return ErrMissingIdentity
	}
	return nil
}

// Merge fills blanks on t from candidate without overwriting fields t already
// has. Used when the direct roster and the post-mined roster disagree: the
// first-seen record wins per field.
func (t Tipster) Merge(candidate Tipster) Tipster {
	if t.ID <= 0 {
		t.ID = candidate.ID
	}
	if strings.TrimSpace(t.Slug) == "" {
		t.Slug = candidate.Slug
	}
	if strings.TrimSpace(t.Name) == "" {
		t.Name = candidate.Name
	}
	if strings.TrimSpace(t.AvatarURL) == "" {
		t.AvatarURL = candidate.AvatarURL
	}
	if strings.TrimSpace(t.Description) == "" {
		t.Description = candidate.Description
	}
	return t
}
