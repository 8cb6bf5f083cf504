package admin

import (
	"context"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"golang.org/x/time/rate"

	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/i18n"
)

const messageChunkLimit = 4000

// BroadcastReport counts the outcome of a broadcast.
type BroadcastReport struct {
	Sent    int
	Skipped int
	Failed  int
}

func (a *Admin) broadcastLimiter() *rate.Limiter {
	perSecond := a.s.Config().Commands.BroadcastRate
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// broadcastJob walks the group list once; next survives a restart after a panic
// so a resumed job does not deliver twice.
type broadcastJob struct {
	text   string
	groups []*db.Group
	next   int
	report BroadcastReport
}

func (a *Admin) newBroadcast(ctx context.Context, text string) (*broadcastJob, error) {
	groups, err := a.s.GetDB().ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	return &broadcastJob{text: text, groups: groups}, nil
}

func (a *Admin) runBroadcast(ctx context.Context, job *broadcastJob) (BroadcastReport, error) {
	entry := a.GetLogger().WithField("method", "runBroadcast")
	limiter := a.broadcastLimiter()
	for job.next < len(job.groups) {
		if err := limiter.Wait(ctx); err != nil {
			return job.report, err
		}
		g := job.groups[job.next]
		job.next++
		_, err := a.s.GetBot().Send(api.NewMessage(g.ID, job.text))
		switch {
		case err == nil:
			job.report.Sent++
		case isBotRemovedError(err):
			job.report.Skipped++
		default:
			job.report.Failed++
			entry.WithField("chat_id", g.ID).WithField("error", err.Error()).Warn("broadcast delivery failed")
		}
	}
	return job.report, nil
}

// Broadcast sends text to every registered group; groups the bot has left are skipped.
func (a *Admin) Broadcast(ctx context.Context, text string) (BroadcastReport, error) {
	job, err := a.newBroadcast(ctx, text)
	if err != nil {
		return BroadcastReport{}, err
	}
	return a.runBroadcast(ctx, job)
}

// handleBroadcast acknowledges at once and delivers in the background, reporting the counts when done.
func (a *Admin) handleBroadcast(ctx context.Context, msg *api.Message, lang string) error {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Usage: /broadcast [text]", lang), "", nil)
		return nil
	}
	job, err := a.newBroadcast(ctx, text)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, tool.ExecTemplate(i18n.Get("📣 Broadcasting to {{ .count }} groups, I will report when it is done.", lang), map[string]any{
		"count": len(job.groups),
	}), "", nil)

	chatID, replyTo := msg.Chat.ID, msg.MessageID
	// Each panic skips one group, so the restart budget is never exhausted.
	a.spawn(len(job.groups), "broadcast", func() {
		report, err := a.runBroadcast(a.lifetime, job)
		if err != nil {
			a.Failure(chatID, replyTo, lang, err)
			return
		}
		a.Reply(chatID, replyTo, tool.ExecTemplate(i18n.Get("📣 Broadcast finished: {{ .sent }} sent, {{ .skipped }} skipped, {{ .failed }} failed.", lang), map[string]any{
			"sent":    report.Sent,
			"skipped": report.Skipped,
			"failed":  report.Failed,
		}), "", nil)
	})
	return nil
}

func (a *Admin) handleStats(ctx context.Context, msg *api.Message, lang string) error {
	store := a.s.GetDB()
	groups, err := store.CountGroups(ctx)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	users, err := store.CountUsers(ctx)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	violations, err := store.CountViolations(ctx)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	byKind, err := store.CountViolationsByKind(ctx)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}

	lines := []string{
		i18n.Get("📊 <b>Bot statistics</b>", lang),
		"",
		tool.ExecTemplate(i18n.Get("👥 Groups: {{ .count }}", lang), map[string]any{"count": groups}),
		tool.ExecTemplate(i18n.Get("👤 Users: {{ .count }}", lang), map[string]any{"count": users}),
		tool.ExecTemplate(i18n.Get("🚨 Violations: {{ .count }}", lang), map[string]any{"count": violations}),
	}
	for _, kind := range db.ViolationKinds {
		if n := byKind[kind]; n > 0 {
			lines = append(lines, "  • "+escape(moderation.KindTitle(kind, lang))+": "+strconv.FormatInt(n, 10))
		}
	}
	if channel := a.s.Config().Links.UpdateChannelUsername; channel != "" {
		lines = append(lines, "", tool.ExecTemplate(i18n.Get("📢 Updates: @{{ .channel }}", lang), map[string]any{"channel": escape(channel)}))
	}
	a.Reply(msg.Chat.ID, msg.MessageID, strings.Join(lines, "\n"), api.ModeHTML, nil)
	return nil
}

// splitWords reads a comma separated list; phrases keep their inner spaces.
func splitWords(s string) []string {
	var res []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			res = append(res, w)
		}
	}
	return res
}

func (a *Admin) handleAbuse(ctx context.Context, msg *api.Message, lang string) error {
	words := splitWords(msg.CommandArguments())
	if len(words) == 0 {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Usage: /abuse word1, word2", lang), "", nil)
		return nil
	}
	n, err := a.lists.Add(ctx, db.KeywordListAbusive, words)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, tool.ExecTemplate(i18n.Get("✅ Added {{ .count }} word(s) to the abusive list.", lang), map[string]any{"count": n}), "", nil)
	return nil
}

func (a *Admin) handleAbuseDelete(ctx context.Context, msg *api.Message, lang string) error {
	words := splitWords(msg.CommandArguments())
	if len(words) == 0 {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("Usage: /abusedelete word1, word2", lang), "", nil)
		return nil
	}
	n, err := a.lists.Remove(ctx, db.KeywordListAbusive, words)
	if err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, tool.ExecTemplate(i18n.Get("🗑 Removed {{ .count }} word(s) from the abusive list.", lang), map[string]any{"count": n}), "", nil)
	return nil
}

func (a *Admin) handleListAbuseWords(_ context.Context, msg *api.Message, lang string) error {
	words := a.lists.List(db.KeywordListAbusive).Words()
	if len(words) == 0 {
		a.Reply(msg.Chat.ID, msg.MessageID, i18n.Get("The abusive word list is empty.", lang), "", nil)
		return nil
	}
	header := tool.ExecTemplate(i18n.Get("📃 Abusive words ({{ .count }}):", lang), map[string]any{"count": len(words)})
	for i, chunk := range chunkWords(words, messageChunkLimit) {
		if i == 0 {
			chunk = header + "\n" + chunk
		}
		a.Reply(msg.Chat.ID, 0, chunk, "", nil)
	}
	return nil
}

// chunkWords joins words with ", " into pieces of at most limit runes; a longer single word gets its own piece.
func chunkWords(words []string, limit int) []string {
	var (
		chunks []string
		b      strings.Builder
		size   int
	)
	for _, w := range words {
		n := len([]rune(w))
		if size > 0 && size+2+n > limit {
			chunks = append(chunks, b.String())
			b.Reset()
			size = 0
		}
		if size > 0 {
			b.WriteString(", ")
			size += 2
		}
		b.WriteString(w)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

func (a *Admin) setBioException(ctx context.Context, msg *api.Message, lang string, allowed bool) error {
	userID, err := parseID(firstArg(msg))
	if err != nil || userID < 0 {
		usage := i18n.Get("Usage: /approved [user id]", lang)
		if !allowed {
			usage = i18n.Get("Usage: /disapprove [user id]", lang)
		}
		a.Reply(msg.Chat.ID, msg.MessageID, usage, "", nil)
		return nil
	}
	if err := a.s.GetDB().SetBioLinkException(ctx, userID, allowed); err != nil {
		a.Failure(msg.Chat.ID, msg.MessageID, lang, err)
		return nil
	}
	a.Reply(msg.Chat.ID, msg.MessageID, bioPermissionText(userID, allowed, lang), "", nil)
	return nil
}

func (a *Admin) handleApproved(ctx context.Context, msg *api.Message, lang string) error {
	return a.setBioException(ctx, msg, lang, true)
}

func (a *Admin) handleDisapprove(ctx context.Context, msg *api.Message, lang string) error {
	return a.setBioException(ctx, msg, lang, false)
}
