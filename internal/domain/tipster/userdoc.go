package tipster

import (
	"strconv"
	"strings"
)

// FromUserDoc converts one raw WordPress user document (a users listing row
// or a post's embedded author) into a Tipster. Avatar sizes come keyed by
// pixel size; largest wins.
func FromUserDoc(user map[string]any) Tipster {
	out := Tipster{
		ID:          docInt64(user, "id"),
		Slug:        docString(user, "slug"),
		Name:        firstNonBlank(docString(user, "name"), docString(user, "display_name")),
		Description: docString(user, "description"),
	}

	if avatars, ok := user["avatar_urls"].(map[string]any); ok {
		for _, size := range []string{"96", "48", "24"} {
			if value := docString(avatars, size); value != "" {
				out.AvatarURL = value
				break
			}
		}
	}
	if out.AvatarURL == "" {
		out.AvatarURL = docString(user, "avatar")
	}
	return out
}

func docString(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	value, ok := src[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func docInt64(src map[string]any, key string) int64 {
	if src == nil {
		return 0
	}
	switch typed := src[key].(type) {
	case float64:
		return int64(typed)
	case float32:
		return int64(typed)
	case int:
		return int64(typed)
	case int64:
		return typed
	case string:
		v, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}

func firstNonBlank(values ...string) string {
	for _, item := range values {
		if strings.TrimSpace(item) != "" {
			return strings.TrimSpace(item)
		}
	}
	return ""
}
