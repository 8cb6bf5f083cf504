package admin

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/grouppolice/internal/bot"
	"github.com/iamwavecut/grouppolice/internal/config"
	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/db/sqlite"
	appErrors "github.com/iamwavecut/grouppolice/internal/errors"
	"github.com/iamwavecut/grouppolice/internal/filters"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/infrastructure/telegram/telegramtest"
	"github.com/iamwavecut/grouppolice/internal/session"
)

const (
	ownerID  int64 = 1
	adminID  int64 = 10
	memberID int64 = 99
	targetID int64 = 500
	groupID  int64 = -1001234567890
	selfID   int64 = 42
)

type fixture struct {
	admin    *Admin
	service  bot.Service
	fake     *telegramtest.Bot
	db       db.Client
	lists    *filters.Lists
	sessions *session.Store
}

func newFixture(t *testing.T, cooldown time.Duration) *fixture {
	t.Helper()

	ctx := context.Background()
	dbClient, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = dbClient.Close() })

	cfg := config.Config{OwnerID: ownerID, DefaultLanguage: "en"}
	fake := telegramtest.New()
	fake.SetAdmin(groupID, adminID)
	fake.SetAdmin(groupID, selfID)
	service := bot.NewService(fake, api.User{ID: selfID, UserName: "GroupPoliceBot", IsBot: true}, dbClient, cfg)

	if _, err := dbClient.UpsertGroup(ctx, groupID, "Test group", adminID); err != nil {
		t.Fatalf("upsert group: %v", err)
	}
	lists := filters.NewLists(dbClient)
	if err := lists.Load(ctx); err != nil {
		t.Fatalf("load lists: %v", err)
	}
	sessions := session.NewStore(cooldown)
	actions := moderation.NewActionService(service.GetOperations(), dbClient, 0)
	return &fixture{
		admin:    NewAdmin(service, actions, lists, sessions),
		service:  service,
		fake:     fake,
		db:       dbClient,
		lists:    lists,
		sessions: sessions,
	}
}

func groupChat() api.Chat {
	return api.Chat{ID: groupID, Type: "supergroup", Title: "Test group"}
}

func privateChat(userID int64) api.Chat {
	return api.Chat{ID: userID, Type: "private"}
}

func command(chat api.Chat, fromID int64, text string) *api.Message {
	length := strings.IndexByte(text, ' ')
	if length < 0 {
		length = len(text)
	}
	return &api.Message{
		MessageID: 10,
		From:      &api.User{ID: fromID, FirstName: "User"},
		Chat:      chat,
		Text:      text,
		Entities:  []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func (f *fixture) send(t *testing.T, msg *api.Message) bool {
	t.Helper()
	proceed, err := f.admin.Handle(context.Background(), &api.Update{Message: msg}, &msg.Chat, msg.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	return proceed
}

func (f *fixture) click(t *testing.T, fromID int64, cb moderation.Callback) {
	t.Helper()
	cq := &api.CallbackQuery{
		ID:      "cq",
		From:    &api.User{ID: fromID, FirstName: "Clicker"},
		Message: &api.Message{MessageID: 900, Chat: groupChat()},
		Data:    cb.MustEncode(),
	}
	proceed, err := f.admin.Handle(context.Background(), &api.Update{CallbackQuery: cq}, nil, nil)
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if proceed {
		t.Fatal("callback must not proceed to other handlers")
	}
}

func lastText(t *testing.T, fake *telegramtest.Bot, chatID int64) string {
	t.Helper()
	msgs := fake.MessagesTo(chatID)
	if len(msgs) == 0 {
		t.Fatalf("no messages sent to %d", chatID)
	}
	return msgs[len(msgs)-1].Text
}

func lastCallback(t *testing.T, fake *telegramtest.Bot) api.CallbackConfig {
	t.Helper()
	cbs := fake.Callbacks()
	if len(cbs) == 0 {
		t.Fatal("no callback answers")
	}
	return cbs[len(cbs)-1]
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"", DefaultMuteDuration, false},
		{"15", 15 * time.Minute, false},
		{"30m", 30 * time.Minute, false},
		{"2H", 2 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"0m", 0, true},
		{"1w", 0, true},
		{"-5m", 0, true},
		{"soon", 0, true},
		{"366d", MaxMuteDuration, false},
		{"367d", 0, true},
		{"200000d", 0, true},
		{"99999999999999999999", 0, true},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in, DefaultMuteDuration)
		if c.err {
			if err == nil || !errors.Is(err, appErrors.ErrInvalidInput) {
				t.Fatalf("%q: expected error, got %v", c.in, got)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("%q: got %v, %v; want %v", c.in, got, err, c.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]string{
		48 * time.Hour:   "2d",
		3 * time.Hour:    "3h",
		90 * time.Minute: "90m",
		time.Hour:        "1h",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestChunkWords(t *testing.T) {
	t.Parallel()

	chunks := chunkWords([]string{"aaaa", "bbbb", "cccc", "dddddddddddd"}, 10)
	want := []string{"aaaa, bbbb", "cccc", "dddddddddddd"}
	if !slices.Equal(chunks, want) {
		t.Fatalf("got %q, want %q", chunks, want)
	}
	if got := chunkWords(nil, 10); len(got) != 0 {
		t.Fatalf("expected no chunks, got %q", got)
	}
}

func TestCommandCooldown(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Minute)
	f.send(t, command(privateChat(memberID), memberID, "/help"))
	f.send(t, command(privateChat(memberID), memberID, "/help"))

	msgs := f.fake.MessagesTo(memberID)
	if len(msgs) != 2 {
		t.Fatalf("expected two replies, got %d", len(msgs))
	}
	if !strings.Contains(msgs[1].Text, "Please wait") {
		t.Fatalf("expected cooldown notice, got %q", msgs[1].Text)
	}
}

func TestUnknownCommandProceeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	if !f.send(t, command(groupChat(), memberID, "/whatever")) {
		t.Fatal("unknown command must proceed")
	}
	if len(f.fake.Sent) != 0 {
		t.Fatalf("nothing should be sent, got %d", len(f.fake.Sent))
	}
}

func TestMuteByReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	msg := command(groupChat(), adminID, "/mute 2h")
	msg.ReplyToMessage = &api.Message{MessageID: 5, From: &api.User{ID: targetID, FirstName: "Target"}, Chat: groupChat()}
	f.send(t, msg)

	restrictions := f.fake.Restrictions()
	if len(restrictions) != 1 || restrictions[0].UserID != targetID {
		t.Fatalf("expected one restriction of %d, got %+v", targetID, restrictions)
	}
	until := time.Unix(restrictions[0].UntilDate, 0)
	if d := time.Until(until); d < 119*time.Minute || d > 121*time.Minute {
		t.Fatalf("expected a two hour mute, got %v", d)
	}
	if text := lastText(t, f.fake, groupID); !strings.Contains(text, "muted for 2h") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestBanByID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.send(t, command(groupChat(), adminID, "/ban 500"))

	bans := f.fake.Bans()
	if len(bans) != 1 || bans[0].UserID != targetID || bans[0].ChatID != groupID {
		t.Fatalf("expected ban of %d, got %+v", targetID, bans)
	}
}

func TestCommandChecksBotRightsFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.fake.SetMember(groupID, selfID, api.ChatMember{Status: "administrator", CanDeleteMessages: true})
	for _, text := range []string{"/ban 500", "/kick 500", "/mute 500 2h", "/warn 500"} {
		f.send(t, command(groupChat(), adminID, text))
		if reply := lastText(t, f.fake, groupID); !strings.Contains(reply, "enough rights") {
			t.Fatalf("%s: unexpected reply %q", text, reply)
		}
	}
	if len(f.fake.Requests) != 0 {
		t.Fatalf("no platform call expected, got %d", len(f.fake.Requests))
	}
	if warns, err := f.db.GetWarns(context.Background(), groupID, targetID); err != nil || warns != 0 {
		t.Fatalf("warn must not be recorded, got %d %v", warns, err)
	}
}

func TestCommandRefusesProtectedTarget(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.fake.SetAdmin(groupID, 11)
	msg := command(groupChat(), adminID, "/ban")
	msg.ReplyToMessage = &api.Message{MessageID: 5, From: &api.User{ID: 11}, Chat: groupChat()}
	f.send(t, msg)

	if len(f.fake.Bans()) != 0 {
		t.Fatal("admins must not be banned")
	}
	if text := lastText(t, f.fake, groupID); !strings.Contains(text, "can't act against") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestCommandRequiresGroupAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.send(t, command(groupChat(), memberID, "/kick 500"))

	if len(f.fake.Bans()) != 0 {
		t.Fatal("non-admins must not kick")
	}
	if text := lastText(t, f.fake, groupID); !strings.Contains(text, "Only group admins") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestWarnCommandBansAtLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	for i := 0; i < moderation.DefaultWarnLimit; i++ {
		f.send(t, command(groupChat(), adminID, "/warn 500"))
	}
	if len(f.fake.Bans()) != 1 {
		t.Fatalf("expected a ban at the warn limit, got %d", len(f.fake.Bans()))
	}
	if text := lastText(t, f.fake, groupID); !strings.Contains(text, "has been banned") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestTakeActionRequiresAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.click(t, memberID, moderation.Callback{Verb: moderation.VerbTakeAction, UserID: targetID, GroupID: groupID})

	answer := lastCallback(t, f.fake)
	if !answer.ShowAlert || !strings.Contains(answer.Text, "Only group admins") {
		t.Fatalf("expected admin-only alert, got %+v", answer)
	}
	if len(f.fake.MarkupEdits()) != 0 {
		t.Fatal("menu must not open for non-admins")
	}
}

func TestTakeActionOpensMenuAndMutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.click(t, adminID, moderation.Callback{Verb: moderation.VerbTakeAction, UserID: targetID, GroupID: groupID})

	edits := f.fake.MarkupEdits()
	if len(edits) != 1 || edits[0].ReplyMarkup == nil {
		t.Fatalf("expected the action menu, got %+v", edits)
	}
	var verbs []moderation.Verb
	for _, row := range edits[0].ReplyMarkup.InlineKeyboard {
		for _, b := range row {
			cb, err := moderation.DecodeCallback(*b.CallbackData)
			if err != nil {
				t.Fatalf("decode menu button: %v", err)
			}
			if cb.UserID != targetID || cb.GroupID != groupID {
				t.Fatalf("menu button lost its target: %+v", cb)
			}
			verbs = append(verbs, cb.Verb)
		}
	}
	want := []moderation.Verb{moderation.VerbMute, moderation.VerbKick, moderation.VerbBan, moderation.VerbWarn, moderation.VerbCancel}
	if !slices.Equal(verbs, want) {
		t.Fatalf("menu verbs %v, want %v", verbs, want)
	}

	f.click(t, adminID, moderation.Callback{Verb: moderation.VerbMute, UserID: targetID, GroupID: groupID, Arg: "3600"})
	if len(f.fake.Restrictions()) != 1 {
		t.Fatalf("expected a mute, got %d", len(f.fake.Restrictions()))
	}
	textEdits := f.fake.Edits()
	if len(textEdits) != 1 || !strings.Contains(textEdits[0].Text, "muted for 1h") {
		t.Fatalf("expected the outcome in the warning message, got %+v", textEdits)
	}
}

func TestCallbackActionOnAdminIsRefused(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.click(t, adminID, moderation.Callback{Verb: moderation.VerbBan, UserID: ownerID, GroupID: groupID})

	if len(f.fake.Bans()) != 0 {
		t.Fatal("the owner must not be banned")
	}
	if answer := lastCallback(t, f.fake); !answer.ShowAlert {
		t.Fatalf("expected an alert, got %+v", answer)
	}
}

func TestBioPermissionCallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := context.Background()
	f.click(t, adminID, moderation.Callback{Verb: moderation.VerbAllowBio, UserID: targetID, GroupID: groupID})

	allowed, err := f.db.GetBioLinkException(ctx, targetID)
	if err != nil || !allowed {
		t.Fatalf("expected exception, got %v, %v", allowed, err)
	}

	f.click(t, adminID, moderation.Callback{Verb: moderation.VerbDenyBio, UserID: targetID, GroupID: groupID})
	allowed, err = f.db.GetBioLinkException(ctx, targetID)
	if err != nil || allowed {
		t.Fatalf("expected exception revoked, got %v, %v", allowed, err)
	}
}

func TestSettingsToggle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := context.Background()
	before, err := f.db.GetGroup(ctx, groupID)
	if err != nil || before == nil {
		t.Fatalf("get group: %v", err)
	}

	f.click(t, adminID, moderation.Callback{Verb: moderation.VerbToggle, GroupID: groupID, Arg: string(db.ToggleFilterSpam)})

	after, err := f.db.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if after.FilterSpam == before.FilterSpam {
		t.Fatal("spam filter was not switched")
	}
	if len(f.fake.Edits()) != 1 {
		t.Fatalf("expected the menu to be re-rendered, got %d edits", len(f.fake.Edits()))
	}
}

func TestSettingsToggleTurnsOffAbusiveFilter(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := context.Background()
	bank := &filters.Bank{Lists: f.lists}
	pipeline := moderation.NewPipeline(f.service, filters.DefaultChain(bank), f.sessions, nil)
	abusive := func(id int) *api.Message {
		return &api.Message{
			MessageID: id,
			Date:      int(time.Now().Unix()),
			From:      &api.User{ID: memberID, FirstName: "Rude"},
			Chat:      groupChat(),
			Text:      "you are a total shit show",
		}
	}

	res, err := pipeline.Process(ctx, abusive(70))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Kind != db.ViolationAbusive {
		t.Fatalf("expected an abusive violation, got %+v", res)
	}

	f.click(t, adminID, moderation.Callback{Verb: moderation.VerbToggle, GroupID: groupID, Arg: string(db.ToggleFilterAbusive)})
	deletes := len(f.fake.Deletes())

	res, err = pipeline.Process(ctx, abusive(71))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !res.Skipped || res.SkipReason != moderation.SkipClean {
		t.Fatalf("expected the message to pass once the filter is off, got %+v", res)
	}
	if len(f.fake.Deletes()) != deletes {
		t.Fatal("nothing must be deleted after the filter is switched off")
	}
	if n, _ := f.db.CountViolations(ctx); n != 1 {
		t.Fatalf("expected only the first violation, got %d", n)
	}
}

func TestSettingsRejectsNonAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.send(t, command(groupChat(), memberID, "/settings"))

	if text := lastText(t, f.fake, groupID); !strings.Contains(text, "Only group admins") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestWelcomeMessageFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := context.Background()
	f.click(t, adminID, moderation.Callback{Verb: moderation.VerbWelcome, GroupID: groupID})

	if _, ok := f.sessions.Awaiting(adminID); !ok {
		t.Fatal("expected pending welcome input")
	}
	if text := lastText(t, f.fake, adminID); !strings.Contains(text, "welcome message") {
		t.Fatalf("expected a private prompt, got %q", text)
	}

	input := &api.Message{MessageID: 11, From: &api.User{ID: adminID}, Chat: privateChat(adminID), Text: "Hi {username}, welcome to {groupname}!"}
	if f.send(t, input) {
		t.Fatal("consumed input must not proceed")
	}

	group, err := f.db.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if group.WelcomeMessage != input.Text {
		t.Fatalf("welcome not stored, got %q", group.WelcomeMessage)
	}
	if _, ok := f.sessions.Awaiting(adminID); ok {
		t.Fatal("pending input must be cleared")
	}
}

func TestCancelClearsPendingInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.sessions.SetAwaiting(adminID, session.Awaiting{Kind: session.AwaitWelcomeMessage, GroupID: groupID})
	f.send(t, command(privateChat(adminID), adminID, "/cancel"))

	if _, ok := f.sessions.Awaiting(adminID); ok {
		t.Fatal("pending input must be cleared")
	}
	if text := lastText(t, f.fake, adminID); text != "Cancelled." {
		t.Fatalf("unexpected reply %q", text)
	}

	plain := &api.Message{MessageID: 12, From: &api.User{ID: adminID}, Chat: privateChat(adminID), Text: "hello"}
	if !f.send(t, plain) {
		t.Fatal("text without pending input must proceed")
	}
}

func TestOwnerCommandsRejectOthers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.send(t, command(privateChat(memberID), memberID, "/stats"))

	if text := lastText(t, f.fake, memberID); !strings.Contains(text, "only for the bot owner") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := context.Background()
	if err := f.db.AddViolation(ctx, &db.Violation{CaseID: "c1", UserID: targetID, GroupID: groupID, Kind: db.ViolationSpam, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("add violation: %v", err)
	}
	f.send(t, command(privateChat(ownerID), ownerID, "/stats"))

	text := lastText(t, f.fake, ownerID)
	for _, want := range []string{"Groups: 1", "Violations: 1", "Spam message: 1"} {
		if !strings.Contains(text, want) {
			t.Fatalf("stats %q lacks %q", text, want)
		}
	}
}

func TestAbuseWordsManagement(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.send(t, command(privateChat(ownerID), ownerID, "/abuse zorbleflux, wibble wobble"))

	words := f.lists.List(db.KeywordListAbusive).Words()
	if !slices.Contains(words, "zorbleflux") || !slices.Contains(words, "wibble wobble") {
		t.Fatalf("words not added: %v", words)
	}

	f.send(t, command(privateChat(ownerID), ownerID, "/listabusewords"))
	if text := lastText(t, f.fake, ownerID); !strings.Contains(text, "zorbleflux") {
		t.Fatalf("listing lacks the new word: %q", text)
	}

	f.send(t, command(privateChat(ownerID), ownerID, "/abusedelete zorbleflux"))
	if slices.Contains(f.lists.List(db.KeywordListAbusive).Words(), "zorbleflux") {
		t.Fatal("word not removed")
	}
}

func TestApprovedCommand(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.send(t, command(privateChat(ownerID), ownerID, "/approved 500"))

	allowed, err := f.db.GetBioLinkException(context.Background(), targetID)
	if err != nil || !allowed {
		t.Fatalf("expected exception, got %v, %v", allowed, err)
	}
}

func TestBroadcastSkipsRemovedGroups(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := context.Background()
	const goneID int64 = -1002
	const brokenID int64 = -1003
	for _, id := range []int64{goneID, brokenID} {
		if _, err := f.db.UpsertGroup(ctx, id, "Other", adminID); err != nil {
			t.Fatalf("upsert group: %v", err)
		}
	}
	f.fake.SendErr = func(c api.Chattable) error {
		m, ok := c.(api.MessageConfig)
		if !ok {
			return nil
		}
		switch m.ChatID {
		case goneID:
			return errors.New("Forbidden: bot was kicked from the supergroup chat")
		case brokenID:
			return errors.New("Too Many Requests: retry after 5")
		}
		return nil
	}

	report, err := f.admin.Broadcast(ctx, "maintenance tonight")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if report != (BroadcastReport{Sent: 1, Skipped: 1, Failed: 1}) {
		t.Fatalf("unexpected report %+v", report)
	}
	if text := lastText(t, f.fake, groupID); text != "maintenance tonight" {
		t.Fatalf("unexpected broadcast text %q", text)
	}
}

func waitForText(t *testing.T, fake *telegramtest.Bot, chatID int64, want string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msgs := fake.MessagesTo(chatID)
		if len(msgs) > 0 && strings.Contains(msgs[len(msgs)-1].Text, want) {
			return msgs[len(msgs)-1].Text
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no message containing %q to %d", want, chatID)
	return ""
}

func panics(f func()) (panicked bool) {
	defer func() { panicked = recover() != nil }()
	f()
	return false
}

func TestBroadcastCommandReturnsBeforeDelivery(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	release := make(chan struct{})
	f.fake.SendErr = func(c api.Chattable) error {
		if m, ok := c.(api.MessageConfig); ok && m.ChatID == groupID {
			<-release
		}
		return nil
	}

	msg := command(privateChat(ownerID), ownerID, "/broadcast maintenance tonight")
	handled := make(chan error, 1)
	go func() {
		_, err := f.admin.Handle(context.Background(), &api.Update{Message: msg}, &msg.Chat, msg.From)
		handled <- err
	}()
	select {
	case err := <-handled:
		if err != nil {
			close(release)
			t.Fatalf("handle: %v", err)
		}
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("the command waited for delivery")
	}
	close(release)

	text := waitForText(t, f.fake, ownerID, "Broadcast finished")
	if text != "📣 Broadcast finished: 1 sent, 0 skipped, 0 failed." {
		t.Fatalf("unexpected report %q", text)
	}
	if sent := f.fake.MessagesTo(groupID); len(sent) != 1 || sent[0].Text != "maintenance tonight" {
		t.Fatalf("expected one delivery, got %+v", sent)
	}
}

func TestBroadcastResumesAfterPanic(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := context.Background()
	const flakyID int64 = -1002
	const otherID int64 = -1003
	for _, id := range []int64{flakyID, otherID} {
		if _, err := f.db.UpsertGroup(ctx, id, "Other", adminID); err != nil {
			t.Fatalf("upsert group: %v", err)
		}
	}

	restarts := 0
	f.admin.spawn = func(maxPanics int, _ string, fn func()) {
		for range maxPanics + 1 {
			if !panics(fn) {
				return
			}
			restarts++
		}
		t.Error("restart budget exhausted")
	}
	var once sync.Once
	f.fake.SendErr = func(c api.Chattable) error {
		if m, ok := c.(api.MessageConfig); ok && m.ChatID == flakyID {
			once.Do(func() { panic("connection reset") })
		}
		return nil
	}

	f.send(t, command(privateChat(ownerID), ownerID, "/broadcast hello"))

	if restarts != 1 {
		t.Fatalf("expected one restart, got %d", restarts)
	}
	for _, id := range []int64{groupID, otherID} {
		if n := len(f.fake.MessagesTo(id)); n != 1 {
			t.Fatalf("group %d got %d copies", id, n)
		}
	}
	if n := len(f.fake.MessagesTo(flakyID)); n != 0 {
		t.Fatalf("the group that panicked must not be retried, got %d", n)
	}
	if text := lastText(t, f.fake, ownerID); text != "📣 Broadcast finished: 2 sent, 0 skipped, 0 failed." {
		t.Fatalf("unexpected report %q", text)
	}
}
