package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	appErrors "github.com/iamwavecut/grouppolice/internal/errors"
)

// BotAPI is the subset of *api.BotAPI the bot relies on.
type BotAPI interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
	GetChat(config api.ChatInfoConfig) (api.ChatFullInfo, error)
}

var _ BotAPI = (*api.BotAPI)(nil)

// Operations wraps chat membership and message primitives.
type Operations struct {
	bot BotAPI
}

func NewOperations(bot BotAPI) *Operations {
	return &Operations{bot: bot}
}

func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := o.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return withPrivilegeError(err, "delete message")
	}
	return nil
}

// Ban removes the user permanently.
func (o *Operations) Ban(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := o.bot.Request(api.BanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
	})
	if err != nil {
		return withPrivilegeError(err, "ban user")
	}
	return nil
}

func (o *Operations) Unban(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := o.bot.Request(api.UnbanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		OnlyIfBanned:     true,
	})
	if err != nil {
		return withPrivilegeError(err, "unban user")
	}
	return nil
}

// Kick removes the user without leaving a ban behind.
func (o *Operations) Kick(ctx context.Context, chatID, userID int64) error {
	if err := o.Ban(ctx, chatID, userID); err != nil {
		return err
	}
	return o.Unban(ctx, chatID, userID)
}

// Mute revokes every send permission until now+d.
func (o *Operations) Mute(ctx context.Context, chatID, userID int64, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := o.bot.Request(api.RestrictChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		UntilDate:        time.Now().Add(d).Unix(),
		Permissions:      &api.ChatPermissions{},
	})
	if err != nil {
		return withPrivilegeError(err, "mute user")
	}
	return nil
}

func (o *Operations) Member(ctx context.Context, chatID, userID int64) (*api.ChatMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get chat member: %w", err)
	}
	return &member, nil
}

// Bio fetches the "about" text of a user's profile.
func (o *Operations) Bio(ctx context.Context, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := o.bot.GetChat(api.ChatInfoConfig{ChatConfig: api.ChatConfig{ChatID: userID}})
	if err != nil {
		return "", fmt.Errorf("get chat: %w", err)
	}
	return info.Bio, nil
}

func memberConfig(chatID, userID int64) api.ChatMemberConfig {
	return api.ChatMemberConfig{
		ChatConfig: api.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
}

var privilegeMarkers = []string{
	"not enough rights",
	"chat_admin_required",
	"need administrator rights",
	"can't remove chat owner",
	"message can't be deleted",
}

func withPrivilegeError(err error, op string) error {
	lower := strings.ToLower(err.Error())
	for _, marker := range privilegeMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%s: %w", op, appErrors.ErrNoPrivileges)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
