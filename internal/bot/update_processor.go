package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	UpdateTimeout = 5 * time.Minute
)

type (
	UpdateProcessor struct {
		s              Service
		updateHandlers []Handler
	}

	UpdatesSource interface {
		GetUpdates(config api.UpdateConfig) ([]api.Update, error)
	}
)

var (
	handlersMu         sync.RWMutex
	registeredHandlers = make(map[string]Handler)
)

func RegisterUpdateHandler(title string, handler Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	registeredHandlers[title] = handler
}

// NewUpdateProcessor chains the registered handlers named in HANDLERS, in that order.
func NewUpdateProcessor(s Service) *UpdateProcessor {
	handlersMu.RLock()
	defer handlersMu.RUnlock()

	up := &UpdateProcessor{s: s}
	for _, name := range s.Config().EnabledHandlers {
		name = strings.TrimSpace(name)
		h := registeredHandlers[name]
		if h == nil {
			log.WithField("handler", name).Warn("handler is not registered")
			continue
		}
		up.updateHandlers = append(up.updateHandlers, h)
	}
	return up
}

// Process runs u through the handler chain until a handler stops it or fails.
// Updates older than UpdateTimeout are dropped.
func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if age := time.Since(sentAt(u)); age > UpdateTimeout {
		log.WithField("update_id", u.UpdateID).WithField("age", age).Debug("skipping outdated update")
		return nil
	}

	chat, user := actors(u)
	for _, handler := range up.updateHandlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			return nil
		}
	}
	return nil
}

func sentAt(u *api.Update) time.Time {
	var date int
	switch {
	case u.Message != nil:
		date = u.Message.Date
	case u.EditedMessage != nil:
		date = u.EditedMessage.Date
	case u.MyChatMember != nil:
		date = u.MyChatMember.Date
	default:
		return time.Now()
	}
	return time.Unix(int64(date), 0)
}

// actors resolves the chat and sender, including membership changes of the bot itself.
func actors(u *api.Update) (*api.Chat, *api.User) {
	chat, user := u.FromChat(), u.SentFrom()
	if m := u.MyChatMember; m != nil {
		if chat == nil {
			chat = &m.Chat
		}
		if user == nil {
			user = &m.From
		}
	}
	return chat, user
}

// GetUpdatesChans long-polls src; onPoll is called after every successful poll.
func GetUpdatesChans(ctx context.Context, src UpdatesSource, config api.UpdateConfig, buffer int, onPoll func()) (api.UpdatesChannel, chan error) {
	ch := make(chan api.Update, buffer)
	chErr := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(chErr)
		for {
			select {
			case <-ctx.Done():
				chErr <- ctx.Err()
				return
			default:
			}

			updates, err := src.GetUpdates(config)
			if err != nil {
				chErr <- err
				return
			}
			if onPoll != nil {
				onPoll()
			}

			for _, update := range updates {
				if update.UpdateID >= config.Offset {
					config.Offset = update.UpdateID + 1
					select {
					case ch <- update:
					case <-ctx.Done():
						chErr <- ctx.Err()
						return
					}
				}
			}
		}
	}()

	return ch, chErr
}

// GetUN prefers the @username and falls back to the full name.
func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return user.UserName
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func GetFullName(user *api.User) string {
	if user == nil {
		return ""
	}
	if name := strings.TrimSpace(user.FirstName + " " + user.LastName); name != "" {
		return name
	}
	return user.UserName
}

// MessageText joins text and caption.
func MessageText(msg *api.Message) string {
	if msg == nil {
		return ""
	}
	return strings.TrimSpace(msg.Text + " " + msg.Caption)
}

func IsGroup(chat *api.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}
