// Package telegramtest provides an in-memory telegram.BotAPI that records every call.
package telegramtest

import (
	"errors"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"
)

type memberKey struct {
	chatID, userID int64
}

type Bot struct {
	mu sync.Mutex

	Sent     []api.Chattable
	Requests []api.Chattable

	members map[memberKey]api.ChatMember
	chats   map[int64]api.ChatFullInfo
	nextID  int
	lookups int

	// SendErr and RequestErr, when set, decide per call whether it fails.
	SendErr    func(c api.Chattable) error
	RequestErr func(c api.Chattable) error
}

func New() *Bot {
	return &Bot{
		members: make(map[memberKey]api.ChatMember),
		chats:   make(map[int64]api.ChatFullInfo),
		nextID:  1000,
	}
}

func (b *Bot) Send(c api.Chattable) (api.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		if err := b.SendErr(c); err != nil {
			return api.Message{}, err
		}
	}
	b.Sent = append(b.Sent, c)
	b.nextID++
	return api.Message{MessageID: b.nextID}, nil
}

func (b *Bot) Request(c api.Chattable) (*api.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.RequestErr != nil {
		if err := b.RequestErr(c); err != nil {
			return nil, err
		}
	}
	b.Requests = append(b.Requests, c)
	return &api.APIResponse{Ok: true}, nil
}

func (b *Bot) GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookups++
	key := memberKey{config.ChatConfig.ChatID, config.UserID}
	if m, ok := b.members[key]; ok {
		return m, nil
	}
	return api.ChatMember{User: &api.User{ID: config.UserID}, Status: "member"}, nil
}

func (b *Bot) GetChat(config api.ChatInfoConfig) (api.ChatFullInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.chats[config.ChatID]; ok {
		return c, nil
	}
	return api.ChatFullInfo{}, errors.New("Bad Request: chat not found")
}

// MemberLookups counts GetChatMember calls.
func (b *Bot) MemberLookups() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookups
}

func (b *Bot) SetMember(chatID, userID int64, member api.ChatMember) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if member.User == nil {
		member.User = &api.User{ID: userID}
	}
	b.members[memberKey{chatID, userID}] = member
}

func (b *Bot) SetAdmin(chatID, userID int64) {
	b.SetMember(chatID, userID, api.ChatMember{Status: "administrator", CanRestrictMembers: true, CanDeleteMessages: true})
}

func (b *Bot) SetBio(userID int64, bio string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info := api.ChatFullInfo{}
	info.ID = userID
	info.Bio = bio
	b.chats[userID] = info
}

// Messages returns sent text messages in order.
func (b *Bot) Messages() []api.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []api.MessageConfig
	for _, c := range b.Sent {
		if m, ok := c.(api.MessageConfig); ok {
			res = append(res, m)
		}
	}
	return res
}

// MessagesTo returns sent text messages addressed to chatID.
func (b *Bot) MessagesTo(chatID int64) []api.MessageConfig {
	var res []api.MessageConfig
	for _, m := range b.Messages() {
		if m.ChatID == chatID {
			res = append(res, m)
		}
	}
	return res
}

func (b *Bot) Edits() []api.EditMessageTextConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []api.EditMessageTextConfig
	for _, c := range b.Sent {
		if e, ok := c.(api.EditMessageTextConfig); ok {
			res = append(res, e)
		}
	}
	return res
}

func (b *Bot) Deletes() []api.DeleteMessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []api.DeleteMessageConfig
	for _, c := range b.Requests {
		if d, ok := c.(api.DeleteMessageConfig); ok {
			res = append(res, d)
		}
	}
	return res
}

func (b *Bot) Bans() []api.BanChatMemberConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []api.BanChatMemberConfig
	for _, c := range b.Requests {
		if r, ok := c.(api.BanChatMemberConfig); ok {
			res = append(res, r)
		}
	}
	return res
}

func (b *Bot) Unbans() []api.UnbanChatMemberConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []api.UnbanChatMemberConfig
	for _, c := range b.Requests {
		if r, ok := c.(api.UnbanChatMemberConfig); ok {
			res = append(res, r)
		}
	}
	return res
}

func (b *Bot) Restrictions() []api.RestrictChatMemberConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []api.RestrictChatMemberConfig
	for _, c := range b.Requests {
		if r, ok := c.(api.RestrictChatMemberConfig); ok {
			res = append(res, r)
		}
	}
	return res
}

func (b *Bot) Callbacks() []api.CallbackConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []api.CallbackConfig
	for _, c := range b.Requests {
		if r, ok := c.(api.CallbackConfig); ok {
			res = append(res, r)
		}
	}
	return res
}

func (b *Bot) MarkupEdits() []api.EditMessageReplyMarkupConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []api.EditMessageReplyMarkupConfig
	for _, c := range b.Sent {
		if e, ok := c.(api.EditMessageReplyMarkupConfig); ok {
			res = append(res, e)
		}
	}
	return res
}
