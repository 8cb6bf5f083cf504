package chat

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/grouppolice/internal/bot"
	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/handlers/base"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/i18n"
)

// Onboarding registers groups and members as they come and go.
type Onboarding struct {
	*base.BaseHandler

	s       bot.Service
	caseLog *moderation.CaseLog
	now     func() time.Time
}

func NewOnboarding(s bot.Service, caseLog *moderation.CaseLog) *Onboarding {
	entry := log.WithField("object", "Onboarding").WithField("method", "NewOnboarding")

	o := &Onboarding{
		BaseHandler: base.NewBaseHandler(s, "onboarding"),
		s:           s,
		caseLog:     caseLog,
		now:         time.Now,
	}
	entry.Debug("created new onboarding handler")
	return o
}

func (o *Onboarding) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if u == nil {
		return true, nil
	}

	if m := u.MyChatMember; m != nil {
		if m.NewChatMember.User != nil {
			o.s.ForgetMember(m.Chat.ID, m.NewChatMember.User.ID)
		}
		if status := m.NewChatMember.Status; bot.IsGroup(&m.Chat) && (status == "left" || status == "kicked") {
			o.botRemoved(ctx, &m.Chat, &m.From)
		}
		return false, nil
	}

	msg := u.Message
	if msg == nil || !bot.IsGroup(&msg.Chat) {
		return true, nil
	}

	switch {
	case len(msg.NewChatMembers) > 0:
		self := o.s.Self()
		for i := range msg.NewChatMembers {
			member := &msg.NewChatMembers[i]
			switch {
			case member.ID == self.ID:
				o.botAdded(ctx, &msg.Chat, msg.From)
			case member.IsBot:
				o.botJoined(ctx, &msg.Chat, member)
			default:
				o.memberJoined(ctx, &msg.Chat, member, msg.From)
			}
		}
		return false, nil
	case msg.LeftChatMember != nil:
		if msg.LeftChatMember.ID != o.s.Self().ID {
			o.memberLeft(ctx, &msg.Chat, msg.LeftChatMember)
		}
		return false, nil
	}
	return true, nil
}

func (o *Onboarding) botAdded(ctx context.Context, chat *api.Chat, inviter *api.User) {
	entry := o.GetLogger().WithField("method", "botAdded").WithField("chat_id", chat.ID)

	var addedBy int64
	if inviter != nil {
		addedBy = inviter.ID
	}
	if _, err := o.s.GetDB().UpsertGroup(ctx, chat.ID, chat.Title, addedBy); err != nil {
		entry.WithField("error", err.Error()).Error("cant register group")
	}

	lang := o.s.GetLanguage(ctx, chat.ID, nil)
	o.Reply(chat.ID, 0, i18n.Get("🙏 Thanks for adding me! Please make me an admin with delete, ban and restrict rights so I can keep this group clean.", lang), "", nil)

	o.record(ctx, &db.LogEntry{
		Type:            db.LogNewGroup,
		EntityID:        chat.ID,
		Name:            chat.Title,
		InviterID:       addedBy,
		InviterUsername: bot.GetUN(inviter),
	}, "")
	entry.Info("bot added to group")
}

func (o *Onboarding) botRemoved(ctx context.Context, chat *api.Chat, by *api.User) {
	var byID int64
	if by != nil {
		byID = by.ID
	}
	o.record(ctx, &db.LogEntry{
		Type:            db.LogLeftGroup,
		EntityID:        chat.ID,
		Name:            chat.Title,
		InviterID:       byID,
		InviterUsername: bot.GetUN(by),
	}, "")
	o.GetLogger().WithField("method", "botRemoved").WithField("chat_id", chat.ID).Info("bot removed from group")
}

// botJoined kicks bots added by someone else; the group opts out by disabling the bot.
func (o *Onboarding) botJoined(ctx context.Context, chat *api.Chat, member *api.User) {
	entry := o.GetLogger().WithField("method", "botJoined").WithField("chat_id", chat.ID).WithField("user_id", member.ID)

	group, err := o.s.GetOrCreateGroup(ctx, chat, 0)
	if err != nil {
		entry.WithField("error", err.Error()).Error("cant load group")
		return
	}
	if !group.BotEnabled {
		return
	}
	if err := o.s.GetOperations().Kick(ctx, chat.ID, member.ID); err != nil {
		entry.WithField("error", err.Error()).Warn("cant kick bot")
		return
	}
	entry.Info("kicked joined bot")
}

func (o *Onboarding) memberJoined(ctx context.Context, chat *api.Chat, member, inviter *api.User) {
	entry := o.GetLogger().WithField("method", "memberJoined").WithField("chat_id", chat.ID).WithField("user_id", member.ID)

	if err := o.s.TouchUser(ctx, member); err != nil {
		entry.WithField("error", err.Error()).Warn("cant store user")
	}

	logEntry := &db.LogEntry{
		Type:     db.LogNewUser,
		EntityID: member.ID,
		Name:     bot.GetFullName(member),
	}
	if inviter != nil && inviter.ID != member.ID {
		logEntry.InviterID = inviter.ID
		logEntry.InviterUsername = bot.GetUN(inviter)
	}
	o.record(ctx, logEntry, chat.Title)

	group, err := o.s.GetOrCreateGroup(ctx, chat, 0)
	if err != nil {
		entry.WithField("error", err.Error()).Error("cant load group")
		return
	}
	if !group.BotEnabled {
		return
	}
	name := bot.GetFullName(member)
	if member.UserName != "" {
		name = "@" + member.UserName
	}
	o.Reply(chat.ID, 0, group.Welcome(name), "", nil)
}

func (o *Onboarding) memberLeft(ctx context.Context, chat *api.Chat, member *api.User) {
	o.record(ctx, &db.LogEntry{
		Type:     db.LogLeftUser,
		EntityID: member.ID,
		Name:     bot.GetFullName(member),
	}, chat.Title)
}

// record stores the entry and mirrors it to the entry log channel.
func (o *Onboarding) record(ctx context.Context, e *db.LogEntry, where string) {
	entry := o.GetLogger().WithField("method", "record").WithField("type", string(e.Type))

	e.CreatedAt = o.now().UTC()
	if err := o.s.GetDB().AddLogEntry(ctx, e); err != nil {
		entry.WithField("error", err.Error()).Error("cant store log entry")
	}
	if o.caseLog == nil {
		return
	}
	if err := o.caseLog.Entry(e, where); err != nil {
		entry.WithField("error", err.Error()).Warn("cant send channel notice")
	}
}
