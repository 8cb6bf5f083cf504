package moderation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/grouppolice/internal/db"
)

const DefaultWarnLimit = 3

// Restrictor is the part of telegram.Operations the action service drives.
type Restrictor interface {
	Ban(ctx context.Context, chatID, userID int64) error
	Unban(ctx context.Context, chatID, userID int64) error
	Kick(ctx context.Context, chatID, userID int64) error
	Mute(ctx context.Context, chatID, userID int64, d time.Duration) error
}

// WarnResult is the outcome of a single warning.
type WarnResult struct {
	Count  int
	Limit  int
	Banned bool
}

type ActionService struct {
	ops       Restrictor
	warns     db.WarnStore
	warnLimit int
}

func NewActionService(ops Restrictor, warns db.WarnStore, warnLimit int) *ActionService {
	if warnLimit <= 0 {
		warnLimit = DefaultWarnLimit
	}
	return &ActionService{
		ops:       ops,
		warns:     warns,
		warnLimit: warnLimit,
	}
}

func (s *ActionService) WarnLimit() int {
	return s.warnLimit
}

func (s *ActionService) Mute(ctx context.Context, groupID, userID int64, d time.Duration) error {
	return errors.WithMessage(s.ops.Mute(ctx, groupID, userID, d), "mute")
}

func (s *ActionService) Kick(ctx context.Context, groupID, userID int64) error {
	return errors.WithMessage(s.ops.Kick(ctx, groupID, userID), "kick")
}

func (s *ActionService) Ban(ctx context.Context, groupID, userID int64) error {
	return errors.WithMessage(s.ops.Ban(ctx, groupID, userID), "ban")
}

func (s *ActionService) Unban(ctx context.Context, groupID, userID int64) error {
	return errors.WithMessage(s.ops.Unban(ctx, groupID, userID), "unban")
}

// Warn adds a warning; reaching the limit bans the user and starts the count over.
func (s *ActionService) Warn(ctx context.Context, groupID, userID int64) (WarnResult, error) {
	entry := log.WithField("object", "ActionService").WithField("method", "Warn")

	count, err := s.warns.IncrementWarn(ctx, groupID, userID)
	if err != nil {
		return WarnResult{}, errors.WithMessage(err, "increment warn")
	}
	res := WarnResult{Count: count, Limit: s.warnLimit}
	if count < s.warnLimit {
		return res, nil
	}

	if err := s.Ban(ctx, groupID, userID); err != nil {
		return res, err
	}
	res.Banned = true
	if err := s.warns.ResetWarns(ctx, groupID, userID); err != nil {
		entry.WithField("error", err.Error()).Warn("cant reset warns after ban")
	}
	return res, nil
}
