package admin

import (
	"context"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/i18n"
	"github.com/iamwavecut/grouppolice/internal/session"
)

const maxWelcomeLen = 1000

func toggleTitle(t db.Toggle, lang string) string {
	switch t {
	case db.ToggleBotEnabled:
		return i18n.Get("🤖 Bot enabled", lang)
	case db.ToggleFilterAbusive:
		return i18n.Get("🤬 Abusive words", lang)
	case db.ToggleFilterPornographicText:
		return i18n.Get("🔞 Pornographic text", lang)
	case db.ToggleFilterSpam:
		return i18n.Get("📛 Spam", lang)
	case db.ToggleFilterLinks:
		return i18n.Get("🔗 Links", lang)
	case db.ToggleFilterBioLinks:
		return i18n.Get("👤 Links in bio", lang)
	case db.ToggleUsernameDel:
		return i18n.Get("📣 @username mentions", lang)
	}
	return t.Title()
}

func settingsText(group *db.Group, lang string) string {
	return tool.ExecTemplate(i18n.Get("⚙️ <b>Settings for {{ .group }}</b>", lang), map[string]any{"group": escape(group.Name)}) +
		"\n\n" + i18n.Get("Tap a setting to switch it on or off.", lang)
}

func settingsKeyboard(group *db.Group, lang string) api.InlineKeyboardMarkup {
	rows := make([][]api.InlineKeyboardButton, 0, len(db.Toggles)+2)
	for _, t := range db.Toggles {
		state := i18n.Get("❌ OFF", lang)
		if group.Enabled(t) {
			state = i18n.Get("✅ ON", lang)
		}
		data := moderation.Callback{Verb: moderation.VerbToggle, GroupID: group.ID, Arg: string(t)}.MustEncode()
		rows = append(rows, api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(toggleTitle(t, lang)+": "+state, data),
		))
	}
	rows = append(rows,
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData(
			i18n.Get("✏️ Set welcome message", lang),
			moderation.Callback{Verb: moderation.VerbWelcome, GroupID: group.ID}.MustEncode(),
		)),
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData(
			i18n.Get("❌ Close", lang),
			moderation.Callback{Verb: moderation.VerbClose, GroupID: group.ID}.MustEncode(),
		)),
	)
	return api.NewInlineKeyboardMarkup(rows...)
}

func groupListKeyboard(groups []*db.Group) api.InlineKeyboardMarkup {
	rows := make([][]api.InlineKeyboardButton, 0, len(groups))
	for _, g := range groups {
		name := g.Name
		if strings.TrimSpace(name) == "" {
			name = strconv.FormatInt(g.ID, 10)
		}
		rows = append(rows, api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData(
			name,
			moderation.Callback{Verb: moderation.VerbSettings, GroupID: g.ID}.MustEncode(),
		)))
	}
	return api.NewInlineKeyboardMarkup(rows...)
}

func (a *Admin) handleSettings(ctx context.Context, msg *api.Message, lang string) error {
	if msg.Chat.IsPrivate() {
		return a.sendGroupList(ctx, msg.Chat.ID, msg.From.ID, lang)
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
	group, err := a.s.GetOrCreateGroup(ctx, &msg.Chat, msg.From.ID)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, settingsText(group, lang), api.ModeHTML, settingsKeyboard(group, lang))
	return nil
}

func (a *Admin) sendGroupList(ctx context.Context, chatID, userID int64, lang string) error {
	groups, err := a.adminGroups(ctx, userID)
	if err != nil {
		a.Failure(chatID, 0, lang, err)
		return nil
	}
	if len(groups) == 0 {
		a.Reply(chatID, 0, i18n.Get("You are not an admin in any group I am part of. Add me to a group first.", lang), "", nil)
		return nil
	}
	a.Reply(chatID, 0, i18n.Get("Choose a group to configure:", lang), "", groupListKeyboard(groups))
	return nil
}

func (a *Admin) handleConnectGroup(ctx context.Context, msg *api.Message, lang string) error {
	groupID, err := parseID(firstArg(msg))
	if err != nil || groupID >= 0 {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Usage: /connectgroup [group id]", lang), "", nil)
		return nil
	}
	isAdmin, err := a.s.IsAdmin(ctx, groupID, msg.From.ID)
	if err != nil {
		a.GetLogger().WithField("method", "handleConnectGroup").WithField("error", err.Error()).Warn("cant check admin status")
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("I can't access that group. Make sure I am a member there.", lang), "", nil)
		return nil
	}
	if !isAdmin {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("⛔ Only group admins can use this command.", lang), "", nil)
		return nil
	}
	group, err := a.s.GetDB().GetGroup(ctx, groupID)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	if group == nil {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("That group is not registered yet. Add me to it first.", lang), "", nil)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, settingsText(group, lang), api.ModeHTML, settingsKeyboard(group, lang))
	return nil
}

func (a *Admin) handleCancel(_ context.Context, msg *api.Message, lang string) error {
	if a.sessions.ClearAwaiting(msg.From.ID) {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Cancelled.", lang), "", nil)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Nothing to cancel.", lang), "", nil)
	return nil
}

func (a *Admin) handleSettingsCallback(ctx context.Context, cq *api.CallbackQuery, cb moderation.Callback, lang string) error {
	if cq.From == nil {
		return nil
	}
	if cb.Verb == moderation.VerbSettings && cb.GroupID == 0 {
		a.answer(cq, "", false)
		return a.sendGroupList(ctx, cq.From.ID, cq.From.ID, lang)
	}

	isAdmin, err := a.s.IsAdmin(ctx, cb.GroupID, cq.From.ID)
	if err != nil {
		a.GetLogger().WithField("method", "handleSettingsCallback").WithField("error", err.Error()).Warn("cant check admin status")
	}
	if !isAdmin {
		a.answer(cq, i18n.Get("⛔ Only group admins can do this.", lang), true)
		return nil
	}

	if cb.Verb == moderation.VerbClose {
		a.answer(cq, "", false)
		if cq.Message != nil {
			_ = tool.Err(a.s.GetBot().Request(api.NewDeleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)))
		}
		return nil
	}

	group, err := a.s.GetDB().GetGroup(ctx, cb.GroupID)
	if err != nil || group == nil {
		if err != nil {
			a.GetLogger().WithField("method", "handleSettingsCallback").WithField("error", err.Error()).Error("cant load group")
		}
		a.answer(cq, i18n.Get("That group is not registered yet. Add me to it first.", lang), true)
		return nil
	}

	switch cb.Verb {
	case moderation.VerbToggle:
		toggle, err := db.ParseToggle(cb.Arg)
		if err != nil {
			a.answer(cq, i18n.Get("Unknown action", lang), false)
			return nil
		}
		value := !group.Enabled(toggle)
		if err := a.s.GetDB().SetGroupToggle(ctx, group.ID, toggle, value); err != nil {
			a.GetLogger().WithField("method", "handleSettingsCallback").WithField("error", err.Error()).Error("cant store toggle")
			a.answer(cq, i18n.Get("Something went wrong, please try again later.", lang), true)
			return nil
		}
		_ = group.Set(toggle, value)
		a.answer(cq, i18n.Get("Setting updated.", lang), false)
	case moderation.VerbWelcome:
		a.sessions.SetAwaiting(cq.From.ID, session.Awaiting{Kind: session.AwaitWelcomeMessage, GroupID: group.ID})
		prompt := tool.ExecTemplate(i18n.Get("✏️ Send me the new welcome message for {{ .group }}. You can use {username} and {groupname}. Send /cancel to abort.", lang), map[string]any{
			"group": group.Name,
		})
		if _, ok := a.Reply(cq.From.ID, 0, prompt, "", nil); !ok {
			a.sessions.ClearAwaiting(cq.From.ID)
			a.answer(cq, i18n.Get("Please start a private chat with me first.", lang), true)
			return nil
		}
		a.answer(cq, i18n.Get("Check your private messages.", lang), false)
		return nil
	default:
		a.answer(cq, "", false)
	}

	text, markup := settingsText(group, lang), settingsKeyboard(group, lang)
	if cq.Message == nil {
		a.Reply(cq.From.ID, 0, text, api.ModeHTML, markup)
		return nil
	}
	return a.editText(cq.Message.Chat.ID, cq.Message.MessageID, text, &markup)
}

// handleAwaitingInput consumes private text expected by an earlier prompt.
func (a *Admin) handleAwaitingInput(ctx context.Context, msg *api.Message) bool {
	awaiting, ok := a.sessions.Awaiting(msg.From.ID)
	if !ok || awaiting.Kind != session.AwaitWelcomeMessage {
		return false
	}
	lang := a.s.GetLanguage(ctx, msg.Chat.ID, msg.From)

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Please send the welcome message as text.", lang), "", nil)
		return true
	}
	if len([]rune(text)) > maxWelcomeLen {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("That message is too long, please keep it under 1000 characters.", lang), "", nil)
		return true
	}

	isAdmin, err := a.s.IsAdmin(ctx, awaiting.GroupID, msg.From.ID)
	if err != nil || !isAdmin {
		a.sessions.ClearAwaiting(msg.From.ID)
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("⛔ Only group admins can do this.", lang), "", nil)
		return true
	}
	if err := a.s.GetDB().SetWelcomeMessage(ctx, awaiting.GroupID, text); err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return true
	}
	a.sessions.ClearAwaiting(msg.From.ID)
	a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("✅ Welcome message updated.", lang), "", nil)
	return true
}
