package db

import (
	"errors"
	"reflect"
	"testing"
)

func TestDefaultGroupEnablesEveryToggle(t *testing.T) {
	t.Parallel()

	g := DefaultGroup(-100123, "Test", 7)
	for _, toggle := range Toggles {
		if !g.Enabled(toggle) {
			t.Fatalf("toggle %s should default to true", toggle)
		}
	}
	if g.AddedBy != 7 || g.Name != "Test" {
		t.Fatalf("unexpected group: %+v", g)
	}
}

func TestGroupSetRejectsUnknownToggle(t *testing.T) {
	t.Parallel()

	g := DefaultGroup(1, "", 0)
	if err := g.Set("filter_everything", false); !errors.Is(err, ErrUnknownToggle) {
		t.Fatalf("expected ErrUnknownToggle, got %v", err)
	}
	if err := g.Set(ToggleFilterSpam, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if g.FilterSpam || g.Enabled(ToggleFilterSpam) {
		t.Fatalf("spam filter should be off")
	}
}

func TestParseToggle(t *testing.T) {
	t.Parallel()

	for _, toggle := range Toggles {
		got, err := ParseToggle(string(toggle))
		if err != nil || got != toggle {
			t.Fatalf("parse %s: got %s, %v", toggle, got, err)
		}
	}
	if _, err := ParseToggle("biolinkdel_enabled"); err == nil {
		t.Fatalf("expected error for legacy toggle name")
	}
}

func TestGroupWelcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		group *Group
		want  string
	}{
		{
			name:  "default template",
			group: &Group{Name: "Gophers"},
			want:  "👋 Hello @bob! Welcome to Gophers.",
		},
		{
			name:  "custom template",
			group: &Group{Name: "Gophers", WelcomeMessage: "Hi {username}, this is {groupname}. {unknown} stays"},
			want:  "Hi @bob, this is Gophers. {unknown} stays",
		},
		{
			name:  "blank template falls back",
			group: &Group{Name: "Gophers", WelcomeMessage: "   "},
			want:  "👋 Hello @bob! Welcome to Gophers.",
		},
	}
	for _, tt := range tests {
		if got := tt.group.Welcome("@bob"); got != tt.want {
			t.Fatalf("%s: got %q want %q", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeKeywords(t *testing.T) {
	t.Parallel()

	got := NormalizeKeywords([]string{" Foo", "foo", "", "BAR ", "  "})
	if !reflect.DeepEqual(got, []string{"foo", "bar"}) {
		t.Fatalf("unexpected keywords: %v", got)
	}
}
