package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

const roastPromptTemplate = "Read this message and reply with a short playful roast, " +
	"1-2 lines, casual tone, no abuse, just a friendly troll: '%s'"

// Replies below this length are too thin to bother sending.
const minRoastReplyLen = 10

// roastAuto is the passive responder: plain text in an authorized group
// may get a generated roast back. Everything here is best-effort — any
// skip condition or error ends the handler silently, a missed roast is
// not a failure.
func (s *Service) roastAuto(b *gotgbot.Bot, ctx *ext.Context) error {
	if !s.roast.Enabled {
		return nil
	}
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil || ctx.EffectiveUser == nil {
		return nil
	}

	text := strings.TrimSpace(msg.GetText())
	if skipRoast(text, s.botUsername, s.roast.MinLen) {
		return nil
	}

	ok, err := s.guard.IsAuthorized(context.Background(), ctx.EffectiveChat.Type, ctx.EffectiveChat.Id)
	if err != nil || !ok {
		return nil
	}

	if s.cooldown != nil {
		allowed, err := s.cooldown.Allow(context.Background(), ctx.EffectiveChat.Id)
		if err != nil {
			s.logger.Warn().Err(err).Int64("chat_id", ctx.EffectiveChat.Id).Msg("roast cooldown check failed")
			return nil
		}
		if !allowed {
			return nil
		}
	}

	s.recordUsage(ctx, "auto_roast")
	_, _ = b.SendChatAction(ctx.EffectiveChat.Id, "typing", nil)

	genCtx, cancel := context.WithTimeout(context.Background(), s.roastTO)
	defer cancel()
	reply, err := s.gen.GenerateText(genCtx, fmt.Sprintf(roastPromptTemplate, text))
	if err != nil {
		s.logger.Debug().Err(err).Int64("chat_id", ctx.EffectiveChat.Id).Msg("roast generation failed")
		return nil
	}
	if len([]rune(reply)) < minRoastReplyLen {
		return nil
	}

	reply = truncateRunes(reply, s.roast.MaxReplyLen)
	if _, err := b.SendMessage(ctx.EffectiveChat.Id, reply, &gotgbot.SendMessageOpts{
		ReplyParameters: &gotgbot.ReplyParameters{MessageId: msg.MessageId},
	}); err != nil {
		s.logger.Debug().Err(err).Int64("chat_id", ctx.EffectiveChat.Id).Msg("failed to send roast")
		return nil
	}
	s.metrics.RoastsTotal.Inc()
	return nil
}

// skipRoast holds the guardrails: too-short messages, commands, and
// anything that talks about the bot itself are left alone.
func skipRoast(text, botUsername string, minLen int) bool {
	if len([]rune(text)) < minLen {
		return true
	}
	if strings.HasPrefix(text, "/") {
		return true
	}
	lower := strings.ToLower(text)
	if botUsername != "" && strings.Contains(lower, "@"+strings.ToLower(botUsername)) {
		return true
	}
	return strings.Contains(lower, "bot")
}
