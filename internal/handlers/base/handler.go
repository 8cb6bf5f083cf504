package base

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/grouppolice/internal/bot"
	"github.com/iamwavecut/grouppolice/internal/i18n"
)

// BaseHandler carries the service and a handler-scoped logger.
type BaseHandler struct {
	service bot.Service
	logger  *log.Entry
}

func NewBaseHandler(service bot.Service, handlerName string) *BaseHandler {
	return &BaseHandler{
		service: service,
		logger:  log.WithField("handler", handlerName),
	}
}

func (h *BaseHandler) GetService() bot.Service {
	return h.service
}

func (h *BaseHandler) GetLogger() *log.Entry {
	return h.logger
}

func (h *BaseHandler) GetLanguage(ctx context.Context, chat *api.Chat, user *api.User) string {
	return h.service.GetLanguage(ctx, chat.ID, user)
}

// Reply sends a text message, logging rather than returning failures.
func (h *BaseHandler) Reply(chatID int64, replyTo int, text, parseMode string, markup any) (api.Message, bool) {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.LinkPreviewOptions.IsDisabled = true
	if replyTo != 0 {
		msg.ReplyParameters.MessageID = replyTo
		msg.ReplyParameters.AllowSendingWithoutReply = true
	}
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := h.service.GetBot().Send(msg)
	if err != nil {
		h.logger.WithField("chat_id", chatID).WithField("error", err.Error()).Error("cant send message")
		return sent, false
	}
	return sent, true
}

// Failure reports a fixed, translated error message; the raw error is only logged.
func (h *BaseHandler) Failure(chatID int64, replyTo int, lang string, err error) {
	h.logger.WithField("chat_id", chatID).WithField("error", err.Error()).Error("operation failed")
	h.Reply(chatID, replyTo, i18n.Get("Something went wrong, please try again later.", lang), "", nil)
}

