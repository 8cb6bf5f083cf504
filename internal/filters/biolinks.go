package filters

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type ProfileFetcher interface {
	Bio(ctx context.Context, userID int64) (string, error)
}

type ExceptionChecker interface {
	GetBioLinkException(ctx context.Context, userID int64) (bool, error)
}

// BioLinks flags users whose profile bio carries a link.
type BioLinks struct {
	Fetcher    ProfileFetcher
	Exceptions ExceptionChecker
}

// HasBioLink fails closed: lookup errors are logged and never flag the user.
func (b *BioLinks) HasBioLink(ctx context.Context, userID int64) bool {
	if b == nil || b.Fetcher == nil {
		return false
	}
	entry := log.WithField("object", "BioLinks").WithField("method", "HasBioLink").WithField("user_id", userID)

	if b.Exceptions != nil {
		allowed, err := b.Exceptions.GetBioLinkException(ctx, userID)
		if err != nil {
			entry.WithField("error", err.Error()).Warn("cant check bio link exception")
			return false
		}
		if allowed {
			return false
		}
	}

	bio, err := b.Fetcher.Bio(ctx, userID)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant fetch user bio")
		return false
	}
	return ContainsLinks(bio)
}
