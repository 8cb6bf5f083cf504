package bot

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/iamwavecut/grouppolice/internal/config"
	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/i18n"
	"github.com/iamwavecut/grouppolice/internal/infrastructure/telegram"
	"github.com/iamwavecut/grouppolice/internal/policy/permissions"
)

const (
	memberCacheSize = 5_000
	memberCacheTTL  = time.Minute
)

type memberKey struct {
	chatID, userID int64
}

type service struct {
	bot     telegram.BotAPI
	ops     *telegram.Operations
	self    api.User
	db      db.Client
	cfg     config.Config
	members *expirable.LRU[memberKey, *api.ChatMember]
}

func NewService(bot telegram.BotAPI, self api.User, dbClient db.Client, cfg config.Config) *service {
	return &service{
		bot:     bot,
		ops:     telegram.NewOperations(bot),
		self:    self,
		db:      dbClient,
		cfg:     cfg,
		members: expirable.NewLRU[memberKey, *api.ChatMember](memberCacheSize, nil, memberCacheTTL),
	}
}

func (s *service) GetBot() telegram.BotAPI {
	return s.bot
}

func (s *service) GetOperations() *telegram.Operations {
	return s.ops
}

func (s *service) Self() api.User {
	return s.self
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) Config() config.Config {
	return s.cfg
}

func (s *service) IsOwner(userID int64) bool {
	return userID != 0 && userID == s.cfg.OwnerID
}

// member returns the chat membership, served from a short-lived cache.
func (s *service) member(ctx context.Context, chatID, userID int64) (*api.ChatMember, error) {
	key := memberKey{chatID: chatID, userID: userID}
	if m, ok := s.members.Get(key); ok {
		return m, nil
	}
	m, err := s.ops.Member(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	s.members.Add(key, m)
	return m, nil
}

func (s *service) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	m, err := s.member(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	return permissions.IsAdmin(m), nil
}

// CanRestrict reports whether the bot itself may ban and restrict members of the chat.
func (s *service) CanRestrict(ctx context.Context, chatID int64) (bool, error) {
	m, err := s.member(ctx, chatID, s.self.ID)
	if err != nil {
		return false, err
	}
	return permissions.CanRestrict(m), nil
}

func (s *service) ForgetMember(chatID, userID int64) {
	s.members.Remove(memberKey{chatID: chatID, userID: userID})
}

// TouchUser upserts the user record and refreshes its last seen time.
func (s *service) TouchUser(ctx context.Context, user *api.User) error {
	if user == nil {
		return nil
	}
	return s.db.UpsertUser(ctx, &db.User{
		ID:        user.ID,
		Username:  user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsBot:     user.IsBot,
		LastSeen:  time.Now().UTC(),
	})
}

// GetOrCreateGroup returns stored settings, creating the group with defaults when unknown.
func (s *service) GetOrCreateGroup(ctx context.Context, chat *api.Chat, addedBy int64) (*db.Group, error) {
	group, err := s.db.GetGroup(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	if group != nil {
		return group, nil
	}
	return s.db.UpsertGroup(ctx, chat.ID, chat.Title, addedBy)
}

// GetLanguage picks the user's language in private chats when it is shipped, otherwise the default.
func (s *service) GetLanguage(_ context.Context, chatID int64, user *api.User) string {
	if user != nil && chatID == user.ID {
		if code := strings.ToLower(user.LanguageCode); code != "" && i18n.Supported(code) {
			return code
		}
	}
	if s.cfg.DefaultLanguage != "" {
		return s.cfg.DefaultLanguage
	}
	return i18n.DefaultLanguage()
}
