package moderation

import (
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"

	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/i18n"
	"github.com/iamwavecut/grouppolice/internal/infrastructure/telegram"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// CaseLog mirrors violations and membership events to the log channels.
type CaseLog struct {
	bot            telegram.BotAPI
	caseChannelID  int64
	entryChannelID int64
	lang           string
}

func NewCaseLog(bot telegram.BotAPI, caseChannelID, entryChannelID int64, lang string) *CaseLog {
	return &CaseLog{
		bot:            bot,
		caseChannelID:  caseChannelID,
		entryChannelID: entryChannelID,
		lang:           lang,
	}
}

func (c *CaseLog) CaseChannelID() int64 {
	return c.caseChannelID
}

// ChannelLink is the t.me/c link of a supergroup or channel id.
func ChannelLink(chatID int64) string {
	id := strconv.FormatInt(chatID, 10)
	id = strings.TrimPrefix(id, "-100")
	id = strings.TrimPrefix(id, "-")
	return "https://t.me/c/" + id
}

func UserLink(userID int64) string {
	return "tg://user?id=" + strconv.FormatInt(userID, 10)
}

func escape(s string) string {
	return api.EscapeText(api.ModeHTML, s)
}

// KindTitle is the translated case name of a violation kind.
func KindTitle(kind db.ViolationKind, lang string) string {
	switch kind {
	case db.ViolationAbusive:
		return i18n.Get("Use of abusive language", lang)
	case db.ViolationPornographic:
		return i18n.Get("Pornographic content", lang)
	case db.ViolationSpam:
		return i18n.Get("Spam message", lang)
	case db.ViolationLink:
		return i18n.Get("Link posted", lang)
	case db.ViolationBioLink:
		return i18n.Get("Link in profile bio", lang)
	case db.ViolationUsername:
		return i18n.Get("Username promotion", lang)
	}
	return kind.CaseName()
}

func yesNo(v bool, lang string) string {
	if v {
		return i18n.Get("yes", lang)
	}
	return i18n.Get("no", lang)
}

// Violation posts the case entry for v to the case channel.
func (c *CaseLog) Violation(v *db.Violation) error {
	if c.caseChannelID == 0 {
		return nil
	}
	lang := c.lang
	lines := []string{
		tool.ExecTemplate(i18n.Get(`🚨 <b>New case: {{ .case_name }}</b>`, lang), map[string]any{
			"case_name": escape(KindTitle(v.Kind, lang)),
		}),
		tool.ExecTemplate(i18n.Get(`👤 Violator: <a href="{{ .user_link }}">{{ .user_name }}</a> (<code>{{ .user_id }}</code>)`, lang), map[string]any{
			"user_link": UserLink(v.UserID),
			"user_name": escape(v.Username),
			"user_id":   v.UserID,
		}),
		tool.ExecTemplate(i18n.Get(`👥 Group: <a href="{{ .group_link }}">{{ .group_name }}</a> (<code>{{ .group_id }}</code>)`, lang), map[string]any{
			"group_link": ChannelLink(v.GroupID),
			"group_name": escape(v.GroupName),
			"group_id":   v.GroupID,
		}),
		tool.ExecTemplate(i18n.Get(`🔖 Type: {{ .kind }}`, lang), map[string]any{"kind": string(v.Kind)}),
		tool.ExecTemplate(i18n.Get(`🕒 Time: {{ .time }}`, lang), map[string]any{"time": v.CreatedAt.UTC().Format(timeLayout)}),
		tool.ExecTemplate(i18n.Get(`🗑 Message deleted: {{ .deleted }}`, lang), map[string]any{"deleted": yesNo(v.MessageDeleted, lang)}),
		tool.ExecTemplate(i18n.Get(`🆔 Case: <code>{{ .case_id }}</code>`, lang), map[string]any{"case_id": v.CaseID}),
		tool.ExecTemplate(i18n.Get(`📝 Content: <code>{{ .content }}</code>`, lang), map[string]any{"content": escape(truncate(v.Content, 3000))}),
	}
	return c.send(c.caseChannelID, strings.Join(lines, "\n"))
}

// Entry posts a membership event; where is the group title for user events.
func (c *CaseLog) Entry(e *db.LogEntry, where string) error {
	if c.entryChannelID == 0 {
		return nil
	}
	lang := c.lang
	var head string
	switch e.Type {
	case db.LogNewGroup:
		head = i18n.Get(`🆕 <b>Bot added to a new group</b>`, lang)
	case db.LogLeftGroup:
		head = i18n.Get(`🚪 <b>Bot removed from a group</b>`, lang)
	case db.LogNewUser:
		head = i18n.Get(`🙋 <b>New member joined</b>`, lang)
	case db.LogLeftUser:
		head = i18n.Get(`👋 <b>Member left</b>`, lang)
	default:
		return errors.Errorf("unknown log type %q", e.Type)
	}

	lines := []string{
		head,
		tool.ExecTemplate(i18n.Get(`📛 Name: {{ .name }} (<code>{{ .id }}</code>)`, lang), map[string]any{
			"name": escape(e.Name),
			"id":   e.EntityID,
		}),
	}
	if where != "" {
		lines = append(lines, tool.ExecTemplate(i18n.Get(`👥 Group: {{ .group_name }}`, lang), map[string]any{"group_name": escape(where)}))
	}
	if e.InviterID != 0 {
		lines = append(lines, tool.ExecTemplate(i18n.Get(`➕ Added by: <a href="{{ .user_link }}">{{ .user_name }}</a>`, lang), map[string]any{
			"user_link": UserLink(e.InviterID),
			"user_name": escape(e.InviterUsername),
		}))
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	lines = append(lines, tool.ExecTemplate(i18n.Get(`🕒 Time: {{ .time }}`, lang), map[string]any{"time": created.UTC().Format(timeLayout)}))
	return c.send(c.entryChannelID, strings.Join(lines, "\n"))
}

func (c *CaseLog) send(chatID int64, text string) error {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	msg.LinkPreviewOptions.IsDisabled = true
	return tool.Err(c.bot.Send(msg))
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
