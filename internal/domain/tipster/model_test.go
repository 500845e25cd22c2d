package tipster

import (
	"errors"
	"testing"
)

func TestKey(t *testing.T) {
	t.Parallel()

	if got := (Tipster{ID: 7, Slug: "joao"}).Key(); got != "id:7" {
		t.Fatalf("got %q", got)
	}
	if got := (Tipster{Slug: "  JoAo "}).Key(); got != "slug:joao" {
		t.Fatalf("got %q", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := (Tipster{}).Validate(); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("got %v", err)
	}
	if err := (Tipster{Slug: "maria"}).Validate(); err != nil {
		t.Fatalf("got %v", err)
	}
}

func TestMergeKeepsFirstSeenFields(t *testing.T) {
	t.Parallel()

	base := Tipster{Slug: "joao", Name: "João"}
	merged := base.Merge(Tipster{ID: 7, Slug: "joao-silva", Name: "J. Silva", AvatarURL: "https://a/7.png"})

	if merged.ID != 7 {
		t.Fatalf("id = %d", merged.ID)
	}
	if merged.Slug != "joao" || merged.Name != "João" {
		t.Fatalf("existing fields overwritten: %+v", merged)
	}
	if merged.AvatarURL != "https://a/7.png" {
		t.Fatalf("blank field not filled: %+v", merged)
	}
}
