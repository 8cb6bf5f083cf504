package admin

import (
	"context"
	"errors"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/grouppolice/internal/bot"
	appErrors "github.com/iamwavecut/grouppolice/internal/errors"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/i18n"
)

func firstArg(msg *api.Message) string {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, appErrors.ErrInvalidInput
	}
	return id, nil
}

func (a *Admin) handleStart(ctx context.Context, msg *api.Message, lang string) error {
	cfg := a.s.Config()
	self := a.s.Self()

	text := tool.ExecTemplate(i18n.Get("👋 Hello {{ .name }}! I am {{ .bot }}, a group moderation bot.", lang), map[string]any{
		"name": escape(bot.GetFullName(msg.From)),
		"bot":  escape(bot.GetFullName(&self)),
	}) + "\n\n" + i18n.Get("I remove abusive, pornographic, spam and link messages, warn the offenders and keep a case log for admins. Add me to your group and make me an admin to get started.", lang)

	rows := [][]api.InlineKeyboardButton{
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonURL(
			i18n.Get("➕ Add me to your group", lang),
			"https://t.me/"+self.UserName+"?startgroup=true",
		)),
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData(
			i18n.Get("❓ Help", lang),
			moderation.Callback{Verb: moderation.VerbHelp}.MustEncode(),
		)),
	}
	var links []api.InlineKeyboardButton
	if cfg.Links.UpdateChannelUsername != "" {
		links = append(links, api.NewInlineKeyboardButtonURL(i18n.Get("📢 Updates", lang), "https://t.me/"+cfg.Links.UpdateChannelUsername))
	}
	if cfg.Links.ContactUsername != "" {
		links = append(links, api.NewInlineKeyboardButtonURL(i18n.Get("👤 Contact", lang), "https://t.me/"+cfg.Links.ContactUsername))
	}
	if len(links) > 0 {
		rows = append(rows, links)
	}
	if msg.Chat.IsPrivate() {
		if groups, err := a.adminGroups(ctx, msg.From.ID); err == nil && len(groups) > 0 {
			rows = append(rows, api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData(
				i18n.Get("⚙️ Settings", lang),
				moderation.Callback{Verb: moderation.VerbSettings}.MustEncode(),
			)))
		}
	}
	markup := api.NewInlineKeyboardMarkup(rows...)

	if cfg.Links.BotPhotoURL != "" {
		photo := api.NewPhoto(msg.Chat.ID, api.FileURL(cfg.Links.BotPhotoURL))
		photo.Caption = text
		photo.ParseMode = api.ModeHTML
		photo.ReplyMarkup = markup
		_, err := a.s.GetBot().Send(photo)
		if err == nil {
			return nil
		}
		a.GetLogger().WithField("method", "handleStart").WithField("error", err.Error()).Warn("cant send start photo, falling back to text")
	}
	a.Reply(msg.Chat.ID, 0, text, api.ModeHTML, markup)
	return nil
}

func (a *Admin) helpText(userID int64, lang string) string {
	lines := []string{
		i18n.Get("📖 <b>Commands</b>", lang),
		"",
		i18n.Get("/settings - configure filters and the welcome message", lang),
		i18n.Get("/connectgroup [group id] - open the settings of a group in private chat", lang),
		i18n.Get("/ban, /unban, /kick - reply to a message or give a user id", lang),
		i18n.Get("/mute [duration] - mute a user, e.g. 30m, 2h or 1d (60m by default)", lang),
		i18n.Get("/warn - warn a user, reaching the limit means a ban", lang),
		i18n.Get("/cancel - cancel pending input", lang),
	}
	if a.s.IsOwner(userID) {
		lines = append(lines,
			"",
			i18n.Get("<b>Owner</b>: /broadcast, /stats, /abuse, /abusedelete, /listabusewords, /approved, /disapprove", lang),
		)
	}
	return strings.Join(lines, "\n")
}

func (a *Admin) handleHelp(_ context.Context, msg *api.Message, lang string) error {
	a.Reply(msg.Chat.ID, msg.MessageID, a.helpText(msg.From.ID, lang), api.ModeHTML, nil)
	return nil
}

// resolveTarget takes the replied-to sender or the first numeric argument; rest holds the remaining arguments.
func (a *Admin) resolveTarget(ctx context.Context, msg *api.Message) (userID int64, name string, rest []string, err error) {
	args := strings.Fields(msg.CommandArguments())
	switch {
	case msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil:
		userID = msg.ReplyToMessage.From.ID
		name = bot.GetFullName(msg.ReplyToMessage.From)
		rest = args
	case len(args) > 0:
		if userID, err = parseID(args[0]); err != nil || userID < 0 {
			return 0, "", nil, appErrors.ErrInvalidInput
		}
		name = strconv.FormatInt(userID, 10)
		rest = args[1:]
	default:
		return 0, "", nil, appErrors.ErrInvalidInput
	}
	if a.isProtected(ctx, msg.Chat.ID, userID) {
		return 0, "", nil, appErrors.ErrProtectedUser
	}
	return userID, name, rest, nil
}

func (a *Admin) targetFailed(msg *api.Message, lang string, err error) {
	if errors.Is(err, appErrors.ErrProtectedUser) {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("⛔ I can't act against this user.", lang), "", nil)
		return
	}
	a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Reply to a message of the user or give their numeric id.", lang), "", nil)
}

func (a *Admin) actionFailed(msg *api.Message, lang string, err error) {
	if errors.Is(err, appErrors.ErrNoPrivileges) {
		a.GetLogger().WithField("chat_id", msg.Chat.ID).WithField("error", err.Error()).Warn("missing chat rights")
		a.Reply(msg.Chat.ID, msg.MessageID, actionErrorText(err, lang), "", nil)
		return
	}
	a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
}

func (a *Admin) handleBan(ctx context.Context, msg *api.Message, lang string) error {
	userID, name, _, err := a.resolveTarget(ctx, msg)
	if err != nil {
		a.targetFailed(msg, lang, err)
		return nil
	}
	if err := a.actions.Ban(ctx, msg.Chat.ID, userID); err != nil {
		a.actionFailed(msg, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, tool.ExecTemplate(i18n.Get("🔨 {{ .user }} has been banned.", lang), map[string]any{"user": name}), "", nil)
	return nil
}

func (a *Admin) handleUnban(ctx context.Context, msg *api.Message, lang string) error {
	userID, name, _, err := a.resolveTarget(ctx, msg)
	if err != nil {
		a.targetFailed(msg, lang, err)
		return nil
	}
	if err := a.actions.Unban(ctx, msg.Chat.ID, userID); err != nil {
		a.actionFailed(msg, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, tool.ExecTemplate(i18n.Get("✅ {{ .user }} has been unbanned.", lang), map[string]any{"user": name}), "", nil)
	return nil
}

func (a *Admin) handleKick(ctx context.Context, msg *api.Message, lang string) error {
	userID, name, _, err := a.resolveTarget(ctx, msg)
	if err != nil {
		a.targetFailed(msg, lang, err)
		return nil
	}
	if err := a.actions.Kick(ctx, msg.Chat.ID, userID); err != nil {
		a.actionFailed(msg, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, tool.ExecTemplate(i18n.Get("👢 {{ .user }} has been kicked.", lang), map[string]any{"user": name}), "", nil)
	return nil
}

func (a *Admin) handleMute(ctx context.Context, msg *api.Message, lang string) error {
	userID, name, rest, err := a.resolveTarget(ctx, msg)
	if err != nil {
		a.targetFailed(msg, lang, err)
		return nil
	}
	raw := ""
	if len(rest) > 0 {
		raw = rest[0]
	}
	def := a.s.Config().Moderation.MuteDuration
	if def <= 0 {
		def = DefaultMuteDuration
	}
	d, err := ParseDuration(raw, def)
	if err != nil {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Invalid duration. Use a number with m, h or d, for example 30m, 2h or 1d.", lang), "", nil)
		return nil
	}
	if err := a.actions.Mute(ctx, msg.Chat.ID, userID, d); err != nil {
		a.actionFailed(msg, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, tool.ExecTemplate(i18n.Get("🔇 {{ .user }} has been muted for {{ .duration }}.", lang), map[string]any{
		"user":     name,
		"duration": FormatDuration(d),
	}), "", nil)
	return nil
}

func (a *Admin) handleWarn(ctx context.Context, msg *api.Message, lang string) error {
	userID, name, _, err := a.resolveTarget(ctx, msg)
	if err != nil {
		a.targetFailed(msg, lang, err)
		return nil
	}
	res, err := a.actions.Warn(ctx, msg.Chat.ID, userID)
	if err != nil {
		a.actionFailed(msg, lang, err)
		return nil
	}
	vars := map[string]any{"user": name, "count": res.Count, "limit": res.Limit}
	text := tool.ExecTemplate(i18n.Get("⚠️ {{ .user }} has been warned ({{ .count }}/{{ .limit }}).", lang), vars)
	if res.Banned {
		text = tool.ExecTemplate(i18n.Get("🔨 {{ .user }} reached {{ .limit }} warnings and has been banned.", lang), vars)
	}
	a.Reply(msg.Chat.ID, msg.MessageID, text, "", nil)
	return nil
}
