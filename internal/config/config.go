package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"BOT_TOKEN,required"`
		OwnerID          int64    `env:"OWNER_ID,required"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=admin,onboarding,moderation"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		LogFormat        string   `env:"LOG_FORMAT,default=text"`
		DotPath          string   `env:"DOT_PATH,default=~/.grouppolice"`
		SentryDSN        string   `env:"SENTRY_DSN"`

		Channels   Channels
		Links      Links
		Storage    Storage
		Health     Health
		Moderation Moderation
		Commands   Commands
	}

	Channels struct {
		CaseLogID  int64 `env:"CASE_LOG_CHANNEL_ID,required"`
		EntryLogID int64 `env:"NEW_USER_GROUP_LOG_CHANNEL_ID,required"`
	}

	Links struct {
		UpdateChannelUsername string `env:"UPDATE_CHANNEL_USERNAME,default=asbhai_bsr"`
		ContactUsername       string `env:"CONTACT_USERNAME,default=asbhaibsr"`
		BotPhotoURL           string `env:"BOT_PHOTO_URL"`
	}

	Storage struct {
		URL           string `env:"DATABASE_URL,default=sqlite://grouppolice.db"`
		MongoDatabase string `env:"MONGO_DATABASE,default=grouppolice"`
	}

	Health struct {
		Addr           string        `env:"HEALTH_ADDR,default=:8080"`
		LivenessWindow time.Duration `env:"HEALTH_LIVENESS_WINDOW,default=3m"`
	}

	Moderation struct {
		WarnLimit     int           `env:"WARN_LIMIT,default=3"`
		SpamMaxLength int           `env:"SPAM_MAX_LENGTH,default=1000"`
		MuteDuration  time.Duration `env:"MUTE_DURATION,default=1h"`
	}

	Commands struct {
		Cooldown      time.Duration `env:"COMMAND_COOLDOWN,default=5s"`
		BroadcastRate float64       `env:"BROADCAST_RATE,default=20"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads .env (when present) and the process environment once.
func Load() (Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.WithField("error", err.Error()).Warn("cant read .env file")
		}
		cfg, err := Parse(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Parse(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: lookuper,
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.OwnerID == 0:
		return errors.New("OWNER_ID must be a non-zero user id")
	case c.Channels.CaseLogID == 0 || c.Channels.EntryLogID == 0:
		return errors.New("log channel ids must be non-zero")
	case c.Moderation.WarnLimit < 1:
		return errors.New("WARN_LIMIT must be positive")
	case c.Moderation.SpamMaxLength < 1:
		return errors.New("SPAM_MAX_LENGTH must be positive")
	case c.Commands.BroadcastRate <= 0:
		return errors.New("BROADCAST_RATE must be positive")
	}
	c.Links.UpdateChannelUsername = strings.TrimPrefix(c.Links.UpdateChannelUsername, "@")
	c.Links.ContactUsername = strings.TrimPrefix(c.Links.ContactUsername, "@")
	return nil
}
