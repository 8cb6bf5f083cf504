package moderation_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/grouppolice/internal/bot"
	"github.com/iamwavecut/grouppolice/internal/config"
	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/db/sqlite"
	"github.com/iamwavecut/grouppolice/internal/filters"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/infrastructure/telegram/telegramtest"
	"github.com/iamwavecut/grouppolice/internal/session"
)

const (
	groupID       int64 = -1001234567890
	caseChannelID int64 = -1009000000001
	spammerID     int64 = 500
)

type fixture struct {
	service  bot.Service
	fake     *telegramtest.Bot
	db       db.Client
	pipeline *moderation.Pipeline
}

func newFixture(t *testing.T, chain func(b *filters.Bank) filters.Chain) *fixture {
	t.Helper()

	ctx := context.Background()
	dbClient, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = dbClient.Close() })

	cfg := config.Config{OwnerID: 1, DefaultLanguage: "en"}
	cfg.Channels.CaseLogID = caseChannelID
	fake := telegramtest.New()
	service := bot.NewService(fake, api.User{ID: 42, UserName: "GroupPoliceBot", IsBot: true}, dbClient, cfg)

	lists := filters.NewLists(dbClient)
	if err := lists.Load(ctx); err != nil {
		t.Fatalf("load lists: %v", err)
	}
	bank := &filters.Bank{
		Lists:            lists,
		BioLinks:         &filters.BioLinks{Fetcher: service.GetOperations(), Exceptions: dbClient},
		ExcludeUsernames: []string{"GroupPoliceBot"},
	}
	if chain == nil {
		chain = filters.DefaultChain
	}
	caseLog := moderation.NewCaseLog(fake, caseChannelID, 0, "en")
	return &fixture{
		service:  service,
		fake:     fake,
		db:       dbClient,
		pipeline: moderation.NewPipeline(service, chain(bank), session.NewStore(time.Second), caseLog),
	}
}

func groupMessage(id int, text string) *api.Message {
	return &api.Message{
		MessageID: id,
		Date:      int(time.Now().Unix()),
		From:      &api.User{ID: spammerID, FirstName: "Spam", LastName: "Bot", UserName: "spammer"},
		Chat:      api.Chat{ID: groupID, Type: "supergroup", Title: "Test group"},
		Text:      text,
	}
}

func callbackButtons(m api.MessageConfig) []api.InlineKeyboardButton {
	kb, ok := m.ReplyMarkup.(api.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var res []api.InlineKeyboardButton
	for _, row := range kb.InlineKeyboard {
		res = append(res, row...)
	}
	return res
}

func TestPipelineLinkViolationEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.pipeline.Process(ctx, groupMessage(77, "visit www.spam-link.example now"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Kind != db.ViolationLink || !res.Actions.MessageDeleted || !res.Actions.CaseLogged || !res.Actions.WarningSent {
		t.Fatalf("unexpected result: %+v", res)
	}

	deletes := f.fake.Deletes()
	if len(deletes) != 1 || deletes[0].MessageID != 77 || deletes[0].ChatID != groupID {
		t.Fatalf("expected one delete of message 77, got %+v", deletes)
	}

	byKind, err := f.db.CountViolationsByKind(ctx)
	if err != nil {
		t.Fatalf("count violations: %v", err)
	}
	if byKind[db.ViolationLink] != 1 || len(byKind) != 1 {
		t.Fatalf("expected one link violation, got %v", byKind)
	}

	logs := f.fake.MessagesTo(caseChannelID)
	if len(logs) != 1 || !strings.Contains(logs[0].Text, res.CaseID) {
		t.Fatalf("expected one case log with the case id, got %+v", logs)
	}

	warnings := f.fake.MessagesTo(groupID)
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
	var hasAction, hasProfile, hasCase bool
	for _, b := range callbackButtons(warnings[0]) {
		switch {
		case b.CallbackData != nil && strings.HasPrefix(*b.CallbackData, "act:ta:"):
			hasAction = true
		case b.URL != nil && strings.HasPrefix(*b.URL, "tg://user?id=500"):
			hasProfile = true
		case b.URL != nil && *b.URL == "https://t.me/c/9000000001":
			hasCase = true
		}
	}
	if !hasAction || !hasProfile || !hasCase {
		t.Fatalf("warning buttons incomplete: action=%v profile=%v case=%v", hasAction, hasProfile, hasCase)
	}

	u, err := f.db.GetUser(ctx, spammerID)
	if err != nil || u == nil {
		t.Fatalf("offender must be stored before the violation: %v %v", u, err)
	}
}

func TestPipelineToggleOffSkipsFilter(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.db.UpsertGroup(ctx, groupID, "Test group", 1); err != nil {
		t.Fatalf("upsert group: %v", err)
	}
	if err := f.db.SetGroupToggle(ctx, groupID, db.ToggleFilterLinks, false); err != nil {
		t.Fatalf("set toggle: %v", err)
	}

	res, err := f.pipeline.Process(ctx, groupMessage(78, "visit www.spam-link.example now"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !res.Skipped || res.SkipReason != moderation.SkipClean {
		t.Fatalf("expected clean skip, got %+v", res)
	}
	if len(f.fake.Deletes()) != 0 || len(f.fake.Messages()) != 0 {
		t.Fatalf("nothing must be deleted or sent")
	}
	if n, _ := f.db.CountViolations(ctx); n != 0 {
		t.Fatalf("expected no violations, got %d", n)
	}
}

func TestPipelineBotDisabledRunsNoFilters(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	spy := func(*filters.Bank) filters.Chain {
		return filters.Chain{{Kind: db.ViolationSpam, Check: func(context.Context, filters.Subject) bool {
			calls.Add(1)
			return true
		}}}
	}
	f := newFixture(t, spy)
	ctx := context.Background()
	if _, err := f.db.UpsertGroup(ctx, groupID, "Test group", 1); err != nil {
		t.Fatalf("upsert group: %v", err)
	}
	if err := f.db.SetGroupToggle(ctx, groupID, db.ToggleBotEnabled, false); err != nil {
		t.Fatalf("set toggle: %v", err)
	}

	res, err := f.pipeline.Process(ctx, groupMessage(79, "anything at all"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.SkipReason != moderation.SkipBotDisabled || calls.Load() != 0 {
		t.Fatalf("expected no filter calls, got %d (%+v)", calls.Load(), res)
	}
}

func TestPipelineAbusiveWinsOverSpam(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	res, err := f.pipeline.Process(context.Background(), groupMessage(80, "fuck "+strings.Repeat("!", 20)))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Kind != db.ViolationAbusive {
		t.Fatalf("expected abusive, got %q", res.Kind)
	}
}

func TestPipelineGuards(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	command := groupMessage(81, "/start www.example.com")
	command.Entities = []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}

	private := groupMessage(82, "www.example.com")
	private.Chat = api.Chat{ID: spammerID, Type: "private"}

	botSender := groupMessage(83, "www.example.com")
	botSender.From = &api.User{ID: 7, IsBot: true}

	self := groupMessage(84, "www.example.com")
	self.From = &api.User{ID: 42, IsBot: true}

	empty := groupMessage(85, "")

	cases := []struct {
		msg  *api.Message
		want string
	}{
		{msg: command, want: moderation.SkipCommand},
		{msg: private, want: moderation.SkipNotGroup},
		{msg: botSender, want: moderation.SkipBotSender},
		{msg: self, want: moderation.SkipSelf},
		{msg: empty, want: moderation.SkipEmptyText},
	}
	for _, tc := range cases {
		res, err := f.pipeline.Process(ctx, tc.msg)
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if !res.Skipped || res.SkipReason != tc.want || res.Stage != moderation.StageGuard {
			t.Fatalf("expected %q at guard, got %+v", tc.want, res)
		}
	}
	if len(f.fake.Requests) != 0 {
		t.Fatalf("guarded messages must not reach the platform")
	}
}

func TestPipelineSkipsAdmins(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.fake.SetAdmin(groupID, spammerID)

	res, err := f.pipeline.Process(context.Background(), groupMessage(86, "visit www.spam-link.example now"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.SkipReason != moderation.SkipAdmin {
		t.Fatalf("expected admin skip, got %+v", res)
	}
}

func TestPipelineDeleteFailureStillRecordsAndNoticesOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.fake.RequestErr = func(c api.Chattable) error {
		if _, ok := c.(api.DeleteMessageConfig); ok {
			return errors.New("Bad Request: message can't be deleted")
		}
		return nil
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := f.pipeline.Process(ctx, groupMessage(90+i, "visit www.spam-link.example now"))
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if res.Actions.MessageDeleted || !res.Actions.WarningSent {
			t.Fatalf("unexpected actions: %+v", res.Actions)
		}
	}

	if n, _ := f.db.CountViolations(ctx); n != 2 {
		t.Fatalf("both violations must be recorded, got %d", n)
	}
	notices := 0
	for _, m := range f.fake.MessagesTo(groupID) {
		if strings.Contains(m.Text, "Delete messages") {
			notices++
		}
	}
	if notices != 1 {
		t.Fatalf("delete-rights notice must be sent once, got %d", notices)
	}
}

func TestPipelineResendsWarningWithoutProfileButton(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.fake.SendErr = func(c api.Chattable) error {
		m, ok := c.(api.MessageConfig)
		if !ok {
			return nil
		}
		for _, b := range callbackButtons(m) {
			if b.URL != nil && strings.HasPrefix(*b.URL, "tg://user") {
				return errors.New("Bad Request: BUTTON_USER_PRIVACY_RESTRICTED")
			}
		}
		return nil
	}

	res, err := f.pipeline.Process(context.Background(), groupMessage(95, "visit www.spam-link.example now"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !res.Actions.WarningSent {
		t.Fatalf("warning must be re-sent")
	}
	warnings := f.fake.MessagesTo(groupID)
	if len(warnings) != 1 {
		t.Fatalf("expected one delivered warning, got %d", len(warnings))
	}
	for _, b := range callbackButtons(warnings[0]) {
		if b.URL != nil && strings.HasPrefix(*b.URL, "tg://user") {
			t.Fatalf("profile button must be dropped")
		}
	}
}

func TestPipelineHandleAlwaysProceeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	proceed, err := f.pipeline.Handle(context.Background(), &api.Update{}, nil, nil)
	if !proceed || err != nil {
		t.Fatalf("empty update must pass through: %v %v", proceed, err)
	}
	u := &api.Update{Message: groupMessage(96, "visit www.spam-link.example now")}
	proceed, err = f.pipeline.Handle(context.Background(), u, &u.Message.Chat, u.Message.From)
	if !proceed || err != nil {
		t.Fatalf("handled message must pass through: %v %v", proceed, err)
	}
}
