package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/grouppolice/internal/bot"
	"github.com/iamwavecut/grouppolice/internal/config"
	"github.com/iamwavecut/grouppolice/internal/db/backend"
	"github.com/iamwavecut/grouppolice/internal/filters"
	"github.com/iamwavecut/grouppolice/internal/handlers/admin"
	"github.com/iamwavecut/grouppolice/internal/handlers/chat"
	"github.com/iamwavecut/grouppolice/internal/handlers/moderation"
	"github.com/iamwavecut/grouppolice/internal/i18n"
	"github.com/iamwavecut/grouppolice/internal/infra"
	"github.com/iamwavecut/grouppolice/internal/lifecycle"
	"github.com/iamwavecut/grouppolice/internal/observability"
	"github.com/iamwavecut/grouppolice/internal/server"
	"github.com/iamwavecut/grouppolice/internal/session"
)

const (
	pollTimeout    = 60
	updatesBuffer  = 100
	stopTimeout    = 10 * time.Second
	minPollBackoff = time.Second
	maxPollBackoff = time.Minute
)

var version = "dev"

var errExecutableChanged = errors.New("executable file was modified")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err.Error()).Fatalln("cant load config")
	}
	config.SetupLogger(cfg, os.Stdout)
	i18n.SetDefaultLanguage(cfg.DefaultLanguage)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, errExecutableChanged) {
			log.Warnln(err.Error())
			return
		}
		log.WithField("error", err.Error()).Fatalln("bot stopped")
	}
	log.Infoln("bye")
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownObservability, err := observability.Init(ctx, observability.Options{SentryDSN: cfg.SentryDSN, Release: version})
	if err != nil {
		return errors.WithMessage(err, "init observability")
	}

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return errors.WithMessage(err, "open storage")
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		_ = store.Close()
		return errors.WithMessage(err, "cant initialize bot api")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	log.WithField("username", botAPI.Self.UserName).Info("authorized")

	service := bot.NewService(botAPI, botAPI.Self, store, cfg)

	lists := filters.NewLists(store)
	if err := lists.Load(ctx); err != nil {
		_ = store.Close()
		return errors.WithMessage(err, "load keyword lists")
	}
	bank := &filters.Bank{
		Lists:            lists,
		Spam:             filters.SpamPolicy{MaxLength: cfg.Moderation.SpamMaxLength},
		BioLinks:         &filters.BioLinks{Fetcher: service.GetOperations(), Exceptions: store},
		ExcludeUsernames: []string{botAPI.Self.UserName},
	}
	sessions := session.NewStore(cfg.Commands.Cooldown)
	caseLog := moderation.NewCaseLog(botAPI, cfg.Channels.CaseLogID, cfg.Channels.EntryLogID, cfg.DefaultLanguage)
	actions := moderation.NewActionService(service.GetOperations(), store, cfg.Moderation.WarnLimit)

	bot.RegisterUpdateHandler("admin", admin.NewAdmin(service, actions, lists, sessions).BindLifetime(ctx))
	bot.RegisterUpdateHandler("onboarding", chat.NewOnboarding(service, caseLog))
	bot.RegisterUpdateHandler("moderation", moderation.NewPipeline(service, filters.DefaultChain(bank), sessions, caseLog))

	heartbeat := infra.NewHeartbeat()

	components := lifecycle.NewRuntime()
	components.Register("observability", lifecycle.Hooks{OnStop: shutdownObservability})
	components.Register("storage", lifecycle.Hooks{OnStop: func(context.Context) error { return store.Close() }})
	components.Register("health", server.New(cfg.Health.Addr, store, heartbeat, cfg.Health.LivenessWindow))
	if err := components.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := components.Stop(stopCtx); err != nil {
			log.WithField("error", err.Error()).Error("shutdown finished with errors")
		}
	}()

	p := &poller{
		source:    botAPI,
		processor: bot.NewUpdateProcessor(service),
		heartbeat: heartbeat,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		done := make(chan error, 1)
		go infra.GoRecoverable(-1, "process_updates", func() {
			done <- p.run(gctx)
		})
		return <-done
	})
	g.Go(func() error {
		select {
		case _, ok := <-infra.MonitorExecutable(gctx):
			if ok {
				return errExecutableChanged
			}
			<-gctx.Done()
			return nil
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// poller keeps the update offset across restarts, so an update that panics is not delivered again.
type poller struct {
	source    bot.UpdatesSource
	processor *bot.UpdateProcessor
	heartbeat *infra.Heartbeat
	offset    int

	minBackoff, maxBackoff time.Duration
}

// run polls until ctx is done; failed polls are logged and retried with a growing pause.
// A rejected token is the only poll error that ends the loop.
func (p *poller) run(ctx context.Context) error {
	lo, hi := p.minBackoff, p.maxBackoff
	if lo <= 0 {
		lo = minPollBackoff
	}
	if hi < lo {
		hi = max(lo, maxPollBackoff)
	}

	backoff := lo
	for {
		delivered, err := p.poll(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if isUnauthorized(err) {
			return errors.WithMessage(err, "get updates")
		}
		if delivered > 0 {
			backoff = lo
		}
		entry := log.WithField("retry_in", backoff.String())
		if err != nil {
			entry = entry.WithField("error", err.Error())
			observability.CaptureError(err)
		}
		entry.Warn("polling stopped, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, hi)
	}
}

func (p *poller) poll(ctx context.Context) (delivered int, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updateConfig := api.NewUpdate(p.offset)
	updateConfig.Timeout = pollTimeout
	updateConfig.AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}

	updates, errs := bot.GetUpdatesChans(ctx, p.source, updateConfig, updatesBuffer, p.heartbeat.Beat)
	for update := range updates {
		delivered++
		p.offset = update.UpdateID + 1
		if err := p.processor.Process(ctx, &update); err != nil {
			log.WithField("error", err.Error()).Errorln("cant process update")
			observability.CaptureError(err)
		}
	}
	return delivered, <-errs
}

func isUnauthorized(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Unauthorized")
}
