package filters

import (
	"context"

	"github.com/iamwavecut/grouppolice/internal/db"
)

// Subject is what the rules look at.
type Subject struct {
	Text   string
	UserID int64
}

type Rule struct {
	Kind   db.ViolationKind
	Toggle db.Toggle
	Check  func(ctx context.Context, s Subject) bool
}

// Chain is evaluated in order; the first enabled matching rule wins.
type Chain []Rule

func (c Chain) Evaluate(ctx context.Context, group *db.Group, s Subject) (Rule, bool) {
	if group == nil || !group.Enabled(db.ToggleBotEnabled) {
		return Rule{}, false
	}
	for _, r := range c {
		if !group.Enabled(r.Toggle) {
			continue
		}
		if r.Check(ctx, s) {
			return r, true
		}
	}
	return Rule{}, false
}

// Bank groups the predicates of the default chain.
type Bank struct {
	Lists    *Lists
	Spam     SpamPolicy
	BioLinks *BioLinks
	// ExcludeUsernames are mentions the username rule ignores, the bot's own handle among them.
	ExcludeUsernames []string
}

func (b *Bank) IsAbusive(content string) bool {
	return b.Lists.List(db.KeywordListAbusive).Match(content)
}

func (b *Bank) IsPornographic(content string) bool {
	return b.Lists.List(db.KeywordListPornographic).Match(content)
}

// DefaultChain is abusive, pornographic, spam, link, bio link, username.
func DefaultChain(b *Bank) Chain {
	return Chain{
		{Kind: db.ViolationAbusive, Toggle: db.ToggleFilterAbusive, Check: func(_ context.Context, s Subject) bool {
			return b.IsAbusive(s.Text)
		}},
		{Kind: db.ViolationPornographic, Toggle: db.ToggleFilterPornographicText, Check: func(_ context.Context, s Subject) bool {
			return b.IsPornographic(s.Text)
		}},
		{Kind: db.ViolationSpam, Toggle: db.ToggleFilterSpam, Check: func(_ context.Context, s Subject) bool {
			return b.Spam.IsSpam(s.Text)
		}},
		{Kind: db.ViolationLink, Toggle: db.ToggleFilterLinks, Check: func(_ context.Context, s Subject) bool {
			return ContainsLinks(s.Text)
		}},
		{Kind: db.ViolationBioLink, Toggle: db.ToggleFilterBioLinks, Check: func(ctx context.Context, s Subject) bool {
			return b.BioLinks.HasBioLink(ctx, s.UserID)
		}},
		{Kind: db.ViolationUsername, Toggle: db.ToggleUsernameDel, Check: func(_ context.Context, s Subject) bool {
			return ContainsUsernames(s.Text, b.ExcludeUsernames...)
		}},
	}
}
