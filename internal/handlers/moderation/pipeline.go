package moderation

import (
	"context"
	"strconv"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/grouppolice/internal/bot"
	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/filters"
	"github.com/iamwavecut/grouppolice/internal/i18n"
	"github.com/iamwavecut/grouppolice/internal/observability"
	"github.com/iamwavecut/grouppolice/internal/session"
)

type Stage string

const (
	StageGuard     Stage = "guard"
	StageSettings  Stage = "settings"
	StagePrivilege Stage = "privilege"
	StageFilter    Stage = "filter"
	StageDelete    Stage = "delete"
	StageLog       Stage = "log"
	StageNotify    Stage = "notify"
)

const (
	SkipNoSender    = "no sender"
	SkipNotGroup    = "not a group"
	SkipCommand     = "command"
	SkipSelf        = "own message"
	SkipBotSender   = "bot sender"
	SkipEmptyText   = "empty text"
	SkipBotDisabled = "bot disabled"
	SkipAdmin       = "admin sender"
	SkipClean       = "clean"

	noticeDeleteRights = "delete_rights"
)

// ProcessingResult tells how far a message went through the pipeline.
type ProcessingResult struct {
	Stage      Stage
	Skipped    bool
	SkipReason string
	Kind       db.ViolationKind
	CaseID     string
	Actions    ProcessingActions
}

type ProcessingActions struct {
	MessageDeleted bool
	CaseLogged     bool
	WarningSent    bool
	Error          string
}

func (r *ProcessingResult) skip(reason string) *ProcessingResult {
	r.Skipped = true
	r.SkipReason = reason
	return r
}

func (r *ProcessingResult) status() string {
	switch {
	case r.Actions.Error != "":
		return "error"
	case r.Kind != "":
		return "violation"
	case r.SkipReason == SkipClean:
		return "clean"
	}
	return "skipped"
}

// Pipeline moderates group messages: detect, delete, record, log and warn.
type Pipeline struct {
	s        bot.Service
	chain    filters.Chain
	sessions *session.Store
	caseLog  *CaseLog
	now      func() time.Time
}

func NewPipeline(s bot.Service, chain filters.Chain, sessions *session.Store, caseLog *CaseLog) *Pipeline {
	return &Pipeline{
		s:        s,
		chain:    chain,
		sessions: sessions,
		caseLog:  caseLog,
		now:      time.Now,
	}
}

// Handle never stops the chain and never returns an error; failures are logged and counted.
func (p *Pipeline) Handle(ctx context.Context, u *api.Update, _ *api.Chat, _ *api.User) (bool, error) {
	if u == nil || u.Message == nil {
		return true, nil
	}
	entry := log.WithField("object", "Pipeline").WithField("method", "Handle")

	res, err := p.Process(ctx, u.Message)
	if err != nil {
		entry.WithFields(log.Fields{
			"chat_id": u.Message.Chat.ID,
			"stage":   res.Stage,
			"error":   err.Error(),
		}).Error("message processing failed")
		return true, nil
	}
	if res.Kind != "" {
		entry.WithFields(log.Fields{
			"chat_id":  u.Message.Chat.ID,
			"kind":     res.Kind,
			"case_id":  res.CaseID,
			"deleted":  res.Actions.MessageDeleted,
			"warned":   res.Actions.WarningSent,
			"case_log": res.Actions.CaseLogged,
		}).Info("violation handled")
	}
	return true, nil
}

func (p *Pipeline) Process(ctx context.Context, msg *api.Message) (res *ProcessingResult, err error) {
	res = &ProcessingResult{Stage: StageGuard}
	if msg == nil {
		return res.skip(SkipNoSender), nil
	}

	done := observability.StartMessageProcessing()
	ctx, end := observability.StartSpan(ctx, "moderation.process", map[string]string{
		"chat_id":    strconv.FormatInt(msg.Chat.ID, 10),
		"message_id": strconv.Itoa(msg.MessageID),
	})
	defer func() {
		if err != nil {
			res.Actions.Error = err.Error()
			observability.CaptureError(err)
		}
		done(res.status())
		end(err)
	}()

	if reason := p.guard(msg); reason != "" {
		return res.skip(reason), nil
	}
	text := bot.MessageText(msg)
	chat := &msg.Chat
	from := msg.From
	entry := log.WithField("object", "Pipeline").WithField("method", "Process").WithField("chat_id", chat.ID)

	res.Stage = StageSettings
	if err := p.s.TouchUser(ctx, from); err != nil {
		return res, errors.WithMessage(err, "touch user")
	}
	group, err := p.s.GetOrCreateGroup(ctx, chat, 0)
	if err != nil {
		return res, errors.WithMessage(err, "resolve group")
	}
	if !group.Enabled(db.ToggleBotEnabled) {
		return res.skip(SkipBotDisabled), nil
	}

	res.Stage = StagePrivilege
	isAdmin, adminErr := p.s.IsAdmin(ctx, chat.ID, from.ID)
	if adminErr != nil {
		entry.WithField("error", adminErr.Error()).Warn("cant check sender status, treating as member")
	}
	if isAdmin {
		return res.skip(SkipAdmin), nil
	}

	res.Stage = StageFilter
	rule, matched := p.chain.Evaluate(ctx, group, filters.Subject{Text: text, UserID: from.ID})
	if !matched {
		return res.skip(SkipClean), nil
	}
	res.Kind = rule.Kind
	observability.RecordViolation(string(rule.Kind))
	lang := p.s.GetLanguage(ctx, chat.ID, from)

	res.Stage = StageDelete
	if err := p.s.GetOperations().DeleteMessage(ctx, chat.ID, msg.MessageID); err != nil {
		entry.WithField("error", err.Error()).Warn("cant delete violating message")
		p.askForDeleteRights(chat.ID, lang)
	} else {
		res.Actions.MessageDeleted = true
	}

	res.Stage = StageLog
	v := &db.Violation{
		CaseID:         uuid.New(),
		UserID:         from.ID,
		Username:       bot.GetUN(from),
		GroupID:        chat.ID,
		GroupName:      group.Name,
		Kind:           rule.Kind,
		Content:        text,
		CaseName:       rule.Kind.CaseName(),
		MessageDeleted: res.Actions.MessageDeleted,
		CreatedAt:      p.now().UTC(),
	}
	if v.GroupName == "" {
		v.GroupName = chat.Title
	}
	if err := p.s.GetDB().AddViolation(ctx, v); err != nil {
		return res, errors.WithMessage(err, "add violation")
	}
	res.CaseID = v.CaseID
	if p.caseLog != nil {
		if err := p.caseLog.Violation(v); err != nil {
			entry.WithField("error", err.Error()).Error("cant post case log")
		} else {
			res.Actions.CaseLogged = true
		}
	}

	res.Stage = StageNotify
	res.Actions.WarningSent = p.warn(chat.ID, from, rule.Kind, res.Actions.MessageDeleted, lang)
	return res, nil
}

func (p *Pipeline) guard(msg *api.Message) string {
	switch {
	case msg.From == nil:
		return SkipNoSender
	case !bot.IsGroup(&msg.Chat):
		return SkipNotGroup
	case msg.IsCommand():
		return SkipCommand
	case msg.From.ID == p.s.Self().ID:
		return SkipSelf
	case msg.From.IsBot:
		return SkipBotSender
	case bot.MessageText(msg) == "":
		return SkipEmptyText
	}
	return ""
}

func (p *Pipeline) askForDeleteRights(chatID int64, lang string) {
	if p.sessions != nil && !p.sessions.NoticeOnce(noticeDeleteRights, chatID) {
		return
	}
	msg := api.NewMessage(chatID, i18n.Get(`⚠️ I could not delete a message that broke the rules. Please make me an admin with the "Delete messages" right.`, lang))
	_ = tool.Err(p.s.GetBot().Send(msg))
}

func (p *Pipeline) warn(chatID int64, user *api.User, kind db.ViolationKind, deleted bool, lang string) bool {
	entry := log.WithField("object", "Pipeline").WithField("method", "warn")

	text := i18n.Get(`⚠️ <b>Objectionable content detected</b>`, lang) + "\n\n" +
		tool.ExecTemplate(i18n.Get(`<a href="{{ .user_link }}">{{ .user_name }}</a> has violated the group rules: {{ .reason }}.`, lang), map[string]any{
			"user_link": UserLink(user.ID),
			"user_name": escape(bot.GetFullName(user)),
			"reason":    escape(KindTitle(kind, lang)),
		})
	if deleted {
		text += "\n" + i18n.Get("The message was removed automatically.", lang)
	}

	withProfile := api.NewMessage(chatID, text)
	withProfile.ParseMode = api.ModeHTML
	withProfile.LinkPreviewOptions.IsDisabled = true
	withProfile.ReplyMarkup = p.warningKeyboard(user.ID, chatID, kind, lang, true)
	_, err := p.s.GetBot().Send(withProfile)
	if err == nil {
		return true
	}
	entry.WithField("error", err.Error()).Warn("warning with profile button rejected, retrying without it")

	plain := withProfile
	plain.ReplyMarkup = p.warningKeyboard(user.ID, chatID, kind, lang, false)
	if _, err := p.s.GetBot().Send(plain); err != nil {
		entry.WithField("error", err.Error()).Error("cant send warning")
		return false
	}
	return true
}

func (p *Pipeline) warningKeyboard(userID, groupID int64, kind db.ViolationKind, lang string, withProfile bool) api.InlineKeyboardMarkup {
	var rows [][]api.InlineKeyboardButton
	if withProfile {
		rows = append(rows, api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonURL(i18n.Get("👤 View user profile", lang), UserLink(userID)),
		))
	}

	action := api.NewInlineKeyboardButtonData(
		i18n.Get("🔨 Take action", lang),
		Callback{Verb: VerbTakeAction, UserID: userID, GroupID: groupID}.MustEncode(),
	)
	if kind == db.ViolationBioLink {
		action = api.NewInlineKeyboardButtonData(
			i18n.Get("⚙️ Manage permission", lang),
			Callback{Verb: VerbManageBio, UserID: userID, GroupID: groupID}.MustEncode(),
		)
	}
	rows = append(rows, api.NewInlineKeyboardRow(action))

	if p.caseLog != nil && p.caseLog.CaseChannelID() != 0 {
		rows = append(rows, api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonURL(i18n.Get("📋 View case", lang), ChannelLink(p.caseLog.CaseChannelID())),
		))
	}
	return api.NewInlineKeyboardMarkup(rows...)
}
