package admin

import (
	"context"
	"math"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/grouppolice/internal/bot"
	"github.com/iamwavecut/grouppolice/internal/db"
	appErrors "github.com/iamwavecut/grouppolice/internal/errors"
	"github.com/iamwavecut/grouppolice/internal/filters"
	"github.com/iamwavecut/grouppolice/internal/handlers/base"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/i18n"
	"github.com/iamwavecut/grouppolice/internal/infra"
	"github.com/iamwavecut/grouppolice/internal/session"
)

type commandFunc func(ctx context.Context, msg *api.Message, lang string) error

// Admin serves slash commands, the action menus and the settings menu.
type Admin struct {
	*base.BaseHandler

	s        bot.Service
	actions  *moderation.ActionService
	lists    *filters.Lists
	sessions *session.Store
	commands map[string]commandFunc

	// lifetime bounds background jobs such as broadcasts.
	lifetime context.Context
	spawn    func(maxPanics int, id string, f func())
}

func NewAdmin(s bot.Service, actions *moderation.ActionService, lists *filters.Lists, sessions *session.Store) *Admin {
	entry := log.WithField("object", "Admin").WithField("method", "NewAdmin")

	a := &Admin{
		BaseHandler: base.NewBaseHandler(s, "admin"),
		s:           s,
		actions:     actions,
		lists:       lists,
		sessions:    sessions,
		lifetime:    context.Background(),
		spawn: func(maxPanics int, id string, f func()) {
			go infra.GoRecoverable(maxPanics, id, f)
		},
	}
	a.commands = map[string]commandFunc{
		"start":        a.handleStart,
		"help":         a.handleHelp,
		"settings":     a.handleSettings,
		"connectgroup": a.handleConnectGroup,
		"cancel":       a.handleCancel,

		"ban":   a.groupAdminOnly(a.handleBan),
		"unban": a.groupAdminOnly(a.handleUnban),
		"kick":  a.groupAdminOnly(a.handleKick),
		"mute":  a.groupAdminOnly(a.handleMute),
		"warn":  a.groupAdminOnly(a.handleWarn),

		"broadcast":      a.ownerOnly(a.handleBroadcast),
		"stats":          a.ownerOnly(a.handleStats),
		"abuse":          a.ownerOnly(a.handleAbuse),
		"abusedelete":    a.ownerOnly(a.handleAbuseDelete),
		"listabusewords": a.ownerOnly(a.handleListAbuseWords),
		"approved":       a.ownerOnly(a.handleApproved),
		"disapprove":     a.ownerOnly(a.handleDisapprove),
	}
	entry.Debug("created new admin handler")
	return a
}

// BindLifetime makes background jobs stop when ctx is done.
func (a *Admin) BindLifetime(ctx context.Context) *Admin {
	a.lifetime = ctx
	return a
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	entry := a.GetLogger().WithField("method", "Handle")

	if u == nil {
		return true, nil
	}

	if cq := u.CallbackQuery; cq != nil {
		if !moderation.IsCallback(cq.Data) {
			return true, nil
		}
		if err := a.s.TouchUser(ctx, cq.From); err != nil {
			entry.WithField("error", err.Error()).Warn("cant touch user")
		}
		return false, a.handleCallback(ctx, cq)
	}

	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message

	if msg.IsCommand() {
		cmd, ok := a.commands[strings.ToLower(msg.Command())]
		if !ok {
			entry.Debugf("unknown command: %s", msg.Command())
			return true, nil
		}
		if err := a.s.TouchUser(ctx, user); err != nil {
			entry.WithField("error", err.Error()).Warn("cant touch user")
		}
		lang := a.s.GetLanguage(ctx, chat.ID, user)
		if allowed, left := a.sessions.AllowCommand(user.ID); !allowed {
			a.Reply(chat.ID, msg.MessageID, tool.ExecTemplate(i18n.Get("⏳ Please wait {{ .seconds }} s before using another command.", lang), map[string]any{
				"seconds": int(math.Ceil(left.Seconds())),
			}), "", nil)
			return false, nil
		}
		entry.Debugf("processing command: %s", msg.Command())
		return false, cmd(ctx, msg, lang)
	}

	if chat.IsPrivate() {
		return !a.handleAwaitingInput(ctx, msg), nil
	}
	return true, nil
}

// ownerOnly restricts a command to the configured owner in private chat.
func (a *Admin) ownerOnly(next commandFunc) commandFunc {
	return func(ctx context.Context, msg *api.Message, lang string) error {
		if !a.s.IsOwner(msg.From.ID) {
			a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("⛔ This command is only for the bot owner.", lang), "", nil)
			return nil
		}
		if !msg.Chat.IsPrivate() {
			a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Please use this command in a private chat with me.", lang), "", nil)
			return nil
		}
		return next(ctx, msg, lang)
	}
}

// groupAdminOnly restricts a command to administrators of the group it is sent in
// and refuses early when the bot itself cannot restrict members there.
func (a *Admin) groupAdminOnly(next commandFunc) commandFunc {
	return func(ctx context.Context, msg *api.Message, lang string) error {
		if !bot.IsGroup(&msg.Chat) {
			a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("This command only works in groups.", lang), "", nil)
			return nil
		}
		isAdmin, err := a.s.IsAdmin(ctx, msg.Chat.ID, msg.From.ID)
		if err != nil {
			a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
			return nil
		}
		if !isAdmin {
			a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("⛔ Only group admins can use this command.", lang), "", nil)
			return nil
		}
		canRestrict, err := a.s.CanRestrict(ctx, msg.Chat.ID)
		if err != nil {
			a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
			return nil
		}
		if !canRestrict {
			a.actionFailed(msg, lang, appErrors.ErrNoPrivileges)
			return nil
		}
		return next(ctx, msg, lang)
	}
}

// adminGroups lists registered groups the user administers.
func (a *Admin) adminGroups(ctx context.Context, userID int64) ([]*db.Group, error) {
	groups, err := a.s.GetDB().ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*db.Group, 0, len(groups))
	for _, g := range groups {
		isAdmin, err := a.s.IsAdmin(ctx, g.ID, userID)
		if err != nil {
			a.GetLogger().WithField("chat_id", g.ID).WithField("error", err.Error()).Debug("cant check admin status")
			continue
		}
		if isAdmin {
			res = append(res, g)
		}
	}
	return res, nil
}

func (a *Admin) answer(cq *api.CallbackQuery, text string, alert bool) {
	cfg := api.NewCallback(cq.ID, text)
	cfg.ShowAlert = alert
	_ = tool.Err(a.s.GetBot().Request(cfg))
}

func (a *Admin) editText(chatID int64, messageID int, text string, markup *api.InlineKeyboardMarkup) error {
	edit := api.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = api.ModeHTML
	edit.ReplyMarkup = markup
	_, err := a.s.GetBot().Send(edit)
	if isMessageNotModifiedError(err) {
		return nil
	}
	return err
}

func (a *Admin) editMarkup(chatID int64, messageID int, markup api.InlineKeyboardMarkup) error {
	_, err := a.s.GetBot().Send(api.NewEditMessageReplyMarkup(chatID, messageID, markup))
	if isMessageNotModifiedError(err) {
		return nil
	}
	return err
}

func isMessageNotModifiedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

var botRemovedMarkers = []string{
	"bot was kicked",
	"bot was blocked",
	"bot is not a member",
	"chat not found",
	"group chat was upgraded",
	"have no rights to send",
}

func isBotRemovedError(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, marker := range botRemovedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
