package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/grouppolice/internal/config"
	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/infrastructure/telegram"
)

type ServiceBot interface {
	GetBot() telegram.BotAPI
	GetOperations() *telegram.Operations
	Self() api.User
}

type ServiceDB interface {
	GetDB() db.Client
}

// Service is shared by every update handler.
type Service interface {
	ServiceBot
	ServiceDB
	Config() config.Config
	IsOwner(userID int64) bool
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	CanRestrict(ctx context.Context, chatID int64) (bool, error)
	// ForgetMember drops a cached membership after it is known to have changed.
	ForgetMember(chatID, userID int64)
	TouchUser(ctx context.Context, user *api.User) error
	GetOrCreateGroup(ctx context.Context, chat *api.Chat, addedBy int64) (*db.Group, error)
	GetLanguage(ctx context.Context, chatID int64, user *api.User) string
}

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
