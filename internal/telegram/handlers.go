package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"genbot/internal/imgproc"
)

const (
	accessDeniedText = "This bot only works in authorized groups. Ask the owner for access."
	ownerOnlyText    = "Owner command, available in private chat only."

	minTextPromptLen  = 2
	minImagePromptLen = 3
)

func (s *Service) start(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat == nil || ctx.EffectiveUser == nil {
		return nil
	}
	s.recordUsage(ctx, "start")

	lines := []string{
		"AI bot. Commands:",
		"/ai <question> - text generation",
		"/img /anime /art /hd /cyber /portrait /landscape /fantasy <prompt> - image generation",
		"/resize HxW - resize a replied-to image (max " + strconv.Itoa(s.resizer.MaxDim()) + ")",
	}
	if s.guard.AllowsOwnerCommand(ctx.EffectiveChat.Type, ctx.EffectiveUser.Id) {
		lines = append(lines,
			"Owner:",
			"/allow <group_id> - authorize a group",
			"/remove <group_id> - revoke a group",
			"/list - show authorized groups",
		)
	}
	return s.reply(ctx, b, strings.Join(lines, "\n"))
}

func (s *Service) allow(b *gotgbot.Bot, ctx *ext.Context) error {
	uid, ok := s.requireOwner(b, ctx)
	if !ok {
		return nil
	}
	groupID, ok := s.groupIDArg(b, ctx, "/allow <group_id>")
	if !ok {
		return nil
	}

	if err := s.store.AddAllowedGroup(context.Background(), groupID, uid); err != nil {
		s.logger.Error().Err(err).Int64("group_id", groupID).Msg("failed to add allowed group")
		return s.reply(ctx, b, "Failed to authorize the group, storage error.")
	}
	s.recordUsage(ctx, "allow")
	return s.reply(ctx, b, fmt.Sprintf("Group %d is now authorized.", groupID))
}

func (s *Service) remove(b *gotgbot.Bot, ctx *ext.Context) error {
	if _, ok := s.requireOwner(b, ctx); !ok {
		return nil
	}
	groupID, ok := s.groupIDArg(b, ctx, "/remove <group_id>")
	if !ok {
		return nil
	}

	removed, err := s.store.RemoveAllowedGroup(context.Background(), groupID)
	if err != nil {
		s.logger.Error().Err(err).Int64("group_id", groupID).Msg("failed to remove allowed group")
		return s.reply(ctx, b, "Failed to revoke the group, storage error.")
	}
	s.recordUsage(ctx, "remove")
	if !removed {
		return s.reply(ctx, b, fmt.Sprintf("Group %d was not authorized.", groupID))
	}
	return s.reply(ctx, b, fmt.Sprintf("Group %d has been revoked.", groupID))
}

func (s *Service) list(b *gotgbot.Bot, ctx *ext.Context) error {
	if _, ok := s.requireOwner(b, ctx); !ok {
		return nil
	}

	groups, err := s.store.ListAllowedGroupDetails(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list allowed groups")
		return s.reply(ctx, b, "Failed to read the group list, storage error.")
	}
	s.recordUsage(ctx, "list")
	if len(groups) == 0 {
		return s.reply(ctx, b, "No groups are currently authorized.")
	}

	lines := []string{"Authorized groups:"}
	for _, g := range groups {
		line := fmt.Sprintf("- %d (added by %d)", g.GroupID, g.AddedBy)
		if gs, err := s.store.GetGroupStats(context.Background(), g.GroupID); err == nil {
			line += fmt.Sprintf(", %d commands, last active %s", gs.TotalCommands, gs.LastActive.UTC().Format("2006-01-02 15:04"))
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("Total: %d", len(groups)))
	return s.reply(ctx, b, strings.Join(lines, "\n"))
}

func (s *Service) ai(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	if !s.requireAuthorized(b, ctx) {
		return nil
	}

	prompt := strings.TrimSpace(commandRemainder(msg.GetText()))
	if prompt == "" {
		return s.reply(ctx, b, "Usage: /ai <your question>")
	}
	if len([]rune(prompt)) < minTextPromptLen {
		return s.reply(ctx, b, "Please provide a longer question.")
	}
	if !s.allowRate(b, ctx) {
		return nil
	}
	s.recordUsage(ctx, "ai")

	_, _ = b.SendChatAction(ctx.EffectiveChat.Id, "typing", nil)

	text, err := s.gen.GenerateText(context.Background(), prompt)
	if err != nil {
		s.metrics.GenerationFailures.Inc()
		s.logger.Error().Err(err).Str("command", "ai").Int64("chat_id", ctx.EffectiveChat.Id).Msg("text generation failed")
		return s.reply(ctx, b, "Generation failed, please try again.")
	}
	return s.reply(ctx, b, truncateRunes(text, 4000))
}

// imageCommand builds the handler for one style variant. All variants
// share the argument shape and flow and differ only in the style modifier
// and caption.
func (s *Service) imageCommand(name string) func(b *gotgbot.Bot, ctx *ext.Context) error {
	style := imageStyles[name]
	return func(b *gotgbot.Bot, ctx *ext.Context) error {
		msg := ctx.EffectiveMessage
		if msg == nil || ctx.EffectiveChat == nil {
			return nil
		}
		if !s.requireAuthorized(b, ctx) {
			return nil
		}

		prompt := strings.TrimSpace(commandRemainder(msg.GetText()))
		if prompt == "" {
			return s.reply(ctx, b, "Usage: /"+name+" <image description>")
		}
		if len([]rune(prompt)) < minImagePromptLen {
			return s.reply(ctx, b, "Please provide a longer description.")
		}
		if !s.allowRate(b, ctx) {
			return nil
		}
		s.recordUsage(ctx, name)

		_, _ = b.SendChatAction(ctx.EffectiveChat.Id, "upload_photo", nil)

		img, err := s.gen.GenerateImage(context.Background(), prompt, style.Modifier)
		if err != nil {
			s.metrics.GenerationFailures.Inc()
			s.logger.Error().Err(err).Str("command", name).Int64("chat_id", ctx.EffectiveChat.Id).Msg("image generation failed")
			return s.reply(ctx, b, "Failed to generate the image, please try again.")
		}

		_, err = b.SendPhoto(ctx.EffectiveChat.Id, gotgbot.InputFileByReader(name+".jpg", bytes.NewReader(img)), &gotgbot.SendPhotoOpts{
			Caption:         style.Display + ": " + truncateRunes(prompt, 200),
			ReplyParameters: &gotgbot.ReplyParameters{MessageId: msg.MessageId},
		})
		if err != nil {
			s.logger.Error().Err(err).Str("command", name).Int64("chat_id", ctx.EffectiveChat.Id).Msg("failed to send generated photo")
		}
		return err
	}
}

func (s *Service) resize(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	if !s.requireAuthorized(b, ctx) {
		return nil
	}

	// Cheap checks first: reply target and dimensions are validated
	// before any file download or decode work.
	if msg.ReplyToMessage == nil {
		return s.reply(ctx, b, "Reply to an image message with /resize HEIGHTxWIDTH")
	}
	if len(msg.ReplyToMessage.Photo) == 0 {
		return s.reply(ctx, b, "The replied message does not contain an image.")
	}
	args := ctx.Args()
	if len(args) != 2 {
		return s.reply(ctx, b, "Usage: /resize HEIGHTxWIDTH (e.g. /resize 800x600)")
	}
	h, w, err := parseDimensions(args[1])
	if err != nil {
		return s.reply(ctx, b, "Invalid format, use HEIGHTxWIDTH with numbers, e.g. 800x600")
	}
	maxDim := s.resizer.MaxDim()
	if h <= 0 || w <= 0 || h > maxDim || w > maxDim {
		return s.reply(ctx, b, fmt.Sprintf("Size must be between 1x1 and %dx%d", maxDim, maxDim))
	}
	s.recordUsage(ctx, "resize")

	_, _ = b.SendChatAction(ctx.EffectiveChat.Id, "upload_photo", nil)

	// Telegram lists photo sizes smallest first; take the largest.
	photos := msg.ReplyToMessage.Photo
	src, err := s.downloadFile(context.Background(), b, photos[len(photos)-1].FileId)
	if err != nil {
		s.logger.Error().Err(err).Str("command", "resize").Int64("chat_id", ctx.EffectiveChat.Id).Msg("failed to download photo")
		return s.reply(ctx, b, "Failed to fetch the image, please try again.")
	}

	out, err := s.resizer.Resize(src, h, w)
	if err != nil {
		switch {
		case errors.Is(err, imgproc.ErrBadDimensions):
			return s.reply(ctx, b, fmt.Sprintf("Size must be between 1x1 and %dx%d", maxDim, maxDim))
		case errors.Is(err, imgproc.ErrDecode):
			return s.reply(ctx, b, "That file is not a valid image.")
		default:
			s.logger.Error().Err(err).Str("command", "resize").Int64("chat_id", ctx.EffectiveChat.Id).Msg("resize failed")
			return s.reply(ctx, b, "Failed to resize the image, please try again.")
		}
	}
	s.metrics.ImagesResized.Inc()

	_, err = b.SendPhoto(ctx.EffectiveChat.Id, gotgbot.InputFileByReader("resized.jpg", bytes.NewReader(out)), &gotgbot.SendPhotoOpts{
		Caption:         fmt.Sprintf("Resized to %dx%d", h, w),
		ReplyParameters: &gotgbot.ReplyParameters{MessageId: msg.MessageId},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("command", "resize").Int64("chat_id", ctx.EffectiveChat.Id).Msg("failed to send resized photo")
	}
	return err
}

// requireOwner gates administrative commands: owner identity and private
// chat, both. A miss gets one fixed reply with no detail.
func (s *Service) requireOwner(b *gotgbot.Bot, ctx *ext.Context) (uid int64, ok bool) {
	if ctx.EffectiveChat == nil || ctx.EffectiveUser == nil {
		return 0, false
	}
	if !s.guard.AllowsOwnerCommand(ctx.EffectiveChat.Type, ctx.EffectiveUser.Id) {
		_ = s.reply(ctx, b, ownerOnlyText)
		return 0, false
	}
	return ctx.EffectiveUser.Id, true
}

// requireAuthorized re-reads the allow-list. A storage fault fails closed:
// the chat gets the same access-denied reply as an unlisted group.
func (s *Service) requireAuthorized(b *gotgbot.Bot, ctx *ext.Context) bool {
	if ctx.EffectiveChat == nil {
		return false
	}
	ok, err := s.guard.IsAuthorized(context.Background(), ctx.EffectiveChat.Type, ctx.EffectiveChat.Id)
	if err != nil {
		s.logger.Error().Err(err).Int64("chat_id", ctx.EffectiveChat.Id).Msg("authorization check failed, failing closed")
	}
	if !ok {
		_ = s.reply(ctx, b, accessDeniedText)
		return false
	}
	return true
}

func (s *Service) groupIDArg(b *gotgbot.Bot, ctx *ext.Context, usage string) (int64, bool) {
	args := ctx.Args()
	if len(args) != 2 {
		_ = s.reply(ctx, b, "Usage: "+usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		_ = s.reply(ctx, b, "Invalid group ID, provide a numeric ID.")
		return 0, false
	}
	return id, true
}

func (s *Service) allowRate(b *gotgbot.Bot, ctx *ext.Context) bool {
	if s.rateLimiter == nil || ctx.EffectiveUser == nil {
		return true
	}
	ok, _, resetAt, err := s.rateLimiter.Allow(context.Background(), ctx.EffectiveChat.Id, ctx.EffectiveUser.Id, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("rate limiter failed")
		return true
	}
	if ok {
		return true
	}
	_ = s.reply(ctx, b, "Rate limit exceeded. Try again after "+resetAt.Format("15:04 UTC"))
	return false
}
