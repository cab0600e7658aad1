package telegram

import (
	"context"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/rs/zerolog"

	"genbot/internal/limits"
	"genbot/internal/metrics"
)

// Processor sits in front of the dispatcher: counts updates and drops
// duplicate deliveries. On a dedupe fault the update is processed anyway;
// at-least-once is the contract with the transport.
type Processor struct {
	Base    ext.BaseProcessor
	Dedupe  *limits.UpdateDeduplicator
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func (p Processor) ProcessUpdate(d *ext.Dispatcher, b *gotgbot.Bot, ctx *ext.Context) error {
	if p.Metrics != nil {
		p.Metrics.UpdatesTotal.Inc()
	}
	if p.Dedupe != nil {
		first, err := p.Dedupe.MarkFirst(context.Background(), ctx.UpdateId)
		if err != nil {
			p.Logger.Error().Err(err).Int64("update_id", ctx.UpdateId).Msg("failed to dedupe update")
		} else if !first {
			if p.Metrics != nil {
				p.Metrics.DuplicatesDropped.Inc()
			}
			return nil
		}
	}
	return p.Base.ProcessUpdate(d, b, ctx)
}
