package db

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownToggle = errors.New("unknown toggle")
)

const DefaultWelcomeMessage = "👋 Hello {username}! Welcome to {groupname}."

// Toggle names a boolean group setting; values match the stored column names.
type Toggle string

const (
	ToggleBotEnabled             Toggle = "bot_enabled"
	ToggleFilterAbusive          Toggle = "filter_abusive"
	ToggleFilterPornographicText Toggle = "filter_pornographic_text"
	ToggleFilterSpam             Toggle = "filter_spam"
	ToggleFilterLinks            Toggle = "filter_links"
	ToggleFilterBioLinks         Toggle = "filter_bio_links"
	ToggleUsernameDel            Toggle = "usernamedel_enabled"
)

// Toggles is the settings menu order.
var Toggles = []Toggle{
	ToggleBotEnabled,
	ToggleFilterAbusive,
	ToggleFilterPornographicText,
	ToggleFilterSpam,
	ToggleFilterLinks,
	ToggleFilterBioLinks,
	ToggleUsernameDel,
}

func ParseToggle(s string) (Toggle, error) {
	for _, t := range Toggles {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrUnknownToggle
}

func (t Toggle) Valid() bool {
	_, err := ParseToggle(string(t))
	return err == nil
}

func (t Toggle) Title() string {
	switch t {
	case ToggleBotEnabled:
		return "Bot enabled"
	case ToggleFilterAbusive:
		return "Abusive words filter"
	case ToggleFilterPornographicText:
		return "Pornographic text filter"
	case ToggleFilterSpam:
		return "Spam filter"
	case ToggleFilterLinks:
		return "Link filter"
	case ToggleFilterBioLinks:
		return "Bio link filter"
	case ToggleUsernameDel:
		return "Username filter"
	}
	return string(t)
}

func DefaultGroup(id int64, name string, addedBy int64) *Group {
	now := time.Now().UTC()
	return &Group{
		ID:                     id,
		Name:                   name,
		BotEnabled:             true,
		FilterAbusive:          true,
		FilterPornographicText: true,
		FilterSpam:             true,
		FilterLinks:            true,
		FilterBioLinks:         true,
		UsernameDelEnabled:     true,
		AddedBy:                addedBy,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func (g *Group) toggleRef(t Toggle) *bool {
	switch t {
	case ToggleBotEnabled:
		return &g.BotEnabled
	case ToggleFilterAbusive:
		return &g.FilterAbusive
	case ToggleFilterPornographicText:
		return &g.FilterPornographicText
	case ToggleFilterSpam:
		return &g.FilterSpam
	case ToggleFilterLinks:
		return &g.FilterLinks
	case ToggleFilterBioLinks:
		return &g.FilterBioLinks
	case ToggleUsernameDel:
		return &g.UsernameDelEnabled
	}
	return nil
}

// Enabled reports the toggle value; the empty toggle is always on.
func (g *Group) Enabled(t Toggle) bool {
	if g == nil {
		return false
	}
	if t == "" {
		return true
	}
	if ref := g.toggleRef(t); ref != nil {
		return *ref
	}
	return false
}

func (g *Group) Set(t Toggle, value bool) error {
	ref := g.toggleRef(t)
	if ref == nil {
		return ErrUnknownToggle
	}
	*ref = value
	return nil
}

// Welcome renders the group's welcome template.
func (g *Group) Welcome(username string) string {
	tmpl := DefaultWelcomeMessage
	name := ""
	if g != nil {
		name = g.Name
		if strings.TrimSpace(g.WelcomeMessage) != "" {
			tmpl = g.WelcomeMessage
		}
	}
	return strings.NewReplacer("{username}", username, "{groupname}", name).Replace(tmpl)
}
