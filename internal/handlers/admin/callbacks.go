package admin

import (
	"context"
	"errors"
	"strconv"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"

	appErrors "github.com/iamwavecut/grouppolice/internal/errors"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/i18n"
)

const menuMuteDuration = time.Hour

func (a *Admin) handleCallback(ctx context.Context, cq *api.CallbackQuery) error {
	entry := a.GetLogger().WithField("method", "handleCallback")

	lang := a.s.GetLanguage(ctx, 0, nil)
	if cq.Message != nil {
		lang = a.s.GetLanguage(ctx, cq.Message.Chat.ID, cq.From)
	}

	cb, err := moderation.DecodeCallback(cq.Data)
	if err != nil {
		entry.WithField("error", err.Error()).Debug("bad callback payload")
		a.answer(cq, i18n.Get("Unknown action", lang), false)
		return nil
	}

	switch cb.Verb {
	case moderation.VerbSettings, moderation.VerbToggle, moderation.VerbWelcome, moderation.VerbClose:
		return a.handleSettingsCallback(ctx, cq, cb, lang)
	case moderation.VerbHelp:
		a.answer(cq, "", false)
		if cq.Message != nil {
			a.Reply(cq.Message.Chat.ID, 0, a.helpText(cq.From.ID, lang), api.ModeHTML, nil)
		}
		return nil
	}

	if cq.From == nil || cb.GroupID == 0 {
		a.answer(cq, i18n.Get("Unknown action", lang), false)
		return nil
	}
	isAdmin, err := a.s.IsAdmin(ctx, cb.GroupID, cq.From.ID)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant check admin status")
	}
	if !isAdmin {
		a.answer(cq, i18n.Get("⛔ Only group admins can do this.", lang), true)
		return nil
	}

	switch cb.Verb {
	case moderation.VerbTakeAction:
		return a.showMenu(cq, a.actionMenu(cb, lang))
	case moderation.VerbManageBio:
		return a.showMenu(cq, a.bioMenu(cb, lang))
	case moderation.VerbCancel:
		a.answer(cq, i18n.Get("Cancelled.", lang), false)
		if cq.Message == nil {
			return nil
		}
		return a.editMarkup(cq.Message.Chat.ID, cq.Message.MessageID, emptyKeyboard())
	case moderation.VerbAllowBio, moderation.VerbDenyBio:
		return a.applyBioPermission(ctx, cq, cb, lang)
	default:
		return a.applyAction(ctx, cq, cb, lang)
	}
}

func (a *Admin) showMenu(cq *api.CallbackQuery, markup api.InlineKeyboardMarkup) error {
	a.answer(cq, "", false)
	if cq.Message == nil {
		return nil
	}
	return a.editMarkup(cq.Message.Chat.ID, cq.Message.MessageID, markup)
}

func (a *Admin) actionMenu(cb moderation.Callback, lang string) api.InlineKeyboardMarkup {
	button := func(text string, verb moderation.Verb, arg string) api.InlineKeyboardButton {
		data := moderation.Callback{Verb: verb, UserID: cb.UserID, GroupID: cb.GroupID, Arg: arg}.MustEncode()
		return api.NewInlineKeyboardButtonData(text, data)
	}
	return api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(button(i18n.Get("🔇 Mute for 1 hour", lang), moderation.VerbMute, strconv.Itoa(int(menuMuteDuration.Seconds())))),
		api.NewInlineKeyboardRow(
			button(i18n.Get("👢 Kick", lang), moderation.VerbKick, ""),
			button(i18n.Get("🔨 Ban", lang), moderation.VerbBan, ""),
		),
		api.NewInlineKeyboardRow(button(i18n.Get("⚠️ Warn", lang), moderation.VerbWarn, "")),
		api.NewInlineKeyboardRow(button(i18n.Get("❌ Cancel", lang), moderation.VerbCancel, "")),
	)
}

func (a *Admin) bioMenu(cb moderation.Callback, lang string) api.InlineKeyboardMarkup {
	allow := moderation.Callback{Verb: moderation.VerbAllowBio, UserID: cb.UserID, GroupID: cb.GroupID}.MustEncode()
	deny := moderation.Callback{Verb: moderation.VerbDenyBio, UserID: cb.UserID, GroupID: cb.GroupID}.MustEncode()
	cancel := moderation.Callback{Verb: moderation.VerbCancel, UserID: cb.UserID, GroupID: cb.GroupID}.MustEncode()
	return api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(i18n.Get("✅ Allow bio links", lang), allow),
			api.NewInlineKeyboardButtonData(i18n.Get("🚫 Deny bio links", lang), deny),
		),
		api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonData(i18n.Get("❌ Cancel", lang), cancel)),
	)
}

func (a *Admin) applyAction(ctx context.Context, cq *api.CallbackQuery, cb moderation.Callback, lang string) error {
	if a.isProtected(ctx, cb.GroupID, cb.UserID) {
		a.answer(cq, i18n.Get("⛔ I can't act against this user.", lang), true)
		return nil
	}

	var (
		err    error
		result string
		vars   = map[string]any{"user_id": cb.UserID, "admin": escape(cq.From.FirstName)}
	)
	switch cb.Verb {
	case moderation.VerbMute:
		d := menuMuteDuration
		if secs, convErr := strconv.Atoi(cb.Arg); convErr == nil && secs > 0 {
			d = time.Duration(secs) * time.Second
		}
		err = a.actions.Mute(ctx, cb.GroupID, cb.UserID, d)
		vars["duration"] = FormatDuration(d)
		result = tool.ExecTemplate(i18n.Get("🔇 User {{ .user_id }} was muted for {{ .duration }} by {{ .admin }}.", lang), vars)
	case moderation.VerbKick:
		err = a.actions.Kick(ctx, cb.GroupID, cb.UserID)
		result = tool.ExecTemplate(i18n.Get("👢 User {{ .user_id }} was kicked by {{ .admin }}.", lang), vars)
	case moderation.VerbBan:
		err = a.actions.Ban(ctx, cb.GroupID, cb.UserID)
		result = tool.ExecTemplate(i18n.Get("🔨 User {{ .user_id }} was banned by {{ .admin }}.", lang), vars)
	case moderation.VerbWarn:
		var res moderation.WarnResult
		res, err = a.actions.Warn(ctx, cb.GroupID, cb.UserID)
		vars["count"] = res.Count
		vars["limit"] = res.Limit
		result = tool.ExecTemplate(i18n.Get("⚠️ User {{ .user_id }} was warned by {{ .admin }} ({{ .count }}/{{ .limit }}).", lang), vars)
		if res.Banned {
			result = tool.ExecTemplate(i18n.Get("🔨 User {{ .user_id }} reached {{ .limit }} warnings and was banned.", lang), vars)
		}
	default:
		a.answer(cq, i18n.Get("Unknown action", lang), false)
		return nil
	}

	if err != nil {
		a.GetLogger().WithField("method", "applyAction").WithField("error", err.Error()).Error("moderation action failed")
		a.answer(cq, actionErrorText(err, lang), true)
		return nil
	}
	a.answer(cq, i18n.Get("Done.", lang), false)
	if cq.Message == nil {
		return nil
	}
	return a.editText(cq.Message.Chat.ID, cq.Message.MessageID, result, nil)
}

func (a *Admin) applyBioPermission(ctx context.Context, cq *api.CallbackQuery, cb moderation.Callback, lang string) error {
	allowed := cb.Verb == moderation.VerbAllowBio
	if err := a.s.GetDB().SetBioLinkException(ctx, cb.UserID, allowed); err != nil {
		a.GetLogger().WithField("method", "applyBioPermission").WithField("error", err.Error()).Error("cant store bio link exception")
		a.answer(cq, i18n.Get("Something went wrong, please try again later.", lang), true)
		return nil
	}
	a.answer(cq, i18n.Get("Done.", lang), false)
	if cq.Message == nil {
		return nil
	}
	return a.editText(cq.Message.Chat.ID, cq.Message.MessageID, bioPermissionText(cb.UserID, allowed, lang), nil)
}

func bioPermissionText(userID int64, allowed bool, lang string) string {
	vars := map[string]any{"user_id": userID}
	if allowed {
		return tool.ExecTemplate(i18n.Get("✅ User {{ .user_id }} may now keep links in their bio.", lang), vars)
	}
	return tool.ExecTemplate(i18n.Get("🚫 User {{ .user_id }} is no longer allowed to keep links in their bio.", lang), vars)
}

// isProtected is true for the owner, the bot itself and chat admins.
func (a *Admin) isProtected(ctx context.Context, groupID, userID int64) bool {
	if a.s.IsOwner(userID) || userID == a.s.Self().ID {
		return true
	}
	isAdmin, err := a.s.IsAdmin(ctx, groupID, userID)
	if err != nil {
		a.GetLogger().WithField("method", "isProtected").WithField("error", err.Error()).Warn("cant check target status")
		return false
	}
	return isAdmin
}

func actionErrorText(err error, lang string) string {
	if errors.Is(err, appErrors.ErrNoPrivileges) {
		return i18n.Get("⚠️ I don't have enough rights to do that. Please make me an admin with ban and restrict permissions.", lang)
	}
	return i18n.Get("Something went wrong, please try again later.", lang)
}

func emptyKeyboard() api.InlineKeyboardMarkup {
	return api.InlineKeyboardMarkup{InlineKeyboard: [][]api.InlineKeyboardButton{}}
}

func escape(s string) string {
	return api.EscapeText(api.ModeHTML, s)
}
