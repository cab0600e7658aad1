package telegram

import (
	"context"
	"net/http"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
	"github.com/rs/zerolog"

	"genbot/internal/auth"
	"genbot/internal/config"
	"genbot/internal/genclient"
	"genbot/internal/imgproc"
	"genbot/internal/limits"
	"genbot/internal/metrics"
	"genbot/internal/storage"
)

// imageStyles is the closed set of style variants of the image command.
// The key is the command name, the value the style modifier sent to the
// image endpoint and the display name used in captions.
var imageStyles = map[string]struct {
	Modifier string
	Display  string
}{
	"img":       {"realistic photo high detail", "Realistic Image"},
	"anime":     {"anime style art", "Anime Art"},
	"art":       {"digital art painting", "Digital Art"},
	"hd":        {"high quality ultra detailed", "HD Image"},
	"cyber":     {"cyberpunk futuristic neon", "Cyberpunk"},
	"portrait":  {"portrait detailed face", "Portrait"},
	"landscape": {"landscape scenery environment", "Landscape"},
	"fantasy":   {"fantasy magic epic", "Fantasy"},
}

type Service struct {
	store       *storage.Store
	guard       *auth.Guard
	gen         *genclient.Client
	resizer     *imgproc.Resizer
	rateLimiter *limits.RateLimiter
	cooldown    *limits.Cooldown
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	httpClient  *http.Client
	botUsername string
	roast       config.RoastConfig
	roastTO     time.Duration
	downloadTO  time.Duration
}

type Config struct {
	Store        *storage.Store
	Guard        *auth.Guard
	Gen          *genclient.Client
	Resizer      *imgproc.Resizer
	RateLimiter  *limits.RateLimiter
	Cooldown     *limits.Cooldown
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
	HTTPClient   *http.Client
	BotUsername  string
	Roast        config.RoastConfig
	RoastTimeout time.Duration
	FileTimeout  time.Duration
}

func NewService(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.RoastTimeout <= 0 {
		cfg.RoastTimeout = 15 * time.Second
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = 45 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Service{
		store:       cfg.Store,
		guard:       cfg.Guard,
		gen:         cfg.Gen,
		resizer:     cfg.Resizer,
		rateLimiter: cfg.RateLimiter,
		cooldown:    cfg.Cooldown,
		logger:      cfg.Logger,
		metrics:     m,
		httpClient:  cfg.HTTPClient,
		botUsername: cfg.BotUsername,
		roast:       cfg.Roast,
		roastTO:     cfg.RoastTimeout,
		downloadTO:  cfg.FileTimeout,
	}
}

// Register wires the fixed command set into the dispatcher. Unknown
// commands have no catch-all handler and fall through unanswered.
func (s *Service) Register(d *ext.Dispatcher) {
	d.AddHandler(handlers.NewCommand("start", s.start))
	d.AddHandler(handlers.NewCommand("allow", s.allow))
	d.AddHandler(handlers.NewCommand("remove", s.remove))
	d.AddHandler(handlers.NewCommand("list", s.list))
	d.AddHandler(handlers.NewCommand("ai", s.ai))
	for name := range imageStyles {
		d.AddHandler(handlers.NewCommand(name, s.imageCommand(name)))
	}
	d.AddHandler(handlers.NewCommand("resize", s.resize))
	d.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		return msg.Chat.Type != "private" && message.Text(msg)
	}, s.roastAuto))
}

func (s *Service) reply(ctx *ext.Context, b *gotgbot.Bot, text string) error {
	if ctx.EffectiveChat == nil {
		return nil
	}
	opts := &gotgbot.SendMessageOpts{}
	if ctx.EffectiveMessage != nil && ctx.EffectiveMessage.MessageId > 0 {
		opts.ReplyParameters = &gotgbot.ReplyParameters{MessageId: ctx.EffectiveMessage.MessageId}
	}
	_, err := b.SendMessage(ctx.EffectiveChat.Id, text, opts)
	return err
}

// recordUsage appends an audit row. Declared best-effort: a storage fault
// is logged and discarded, it never blocks or fails the action that
// triggered it.
func (s *Service) recordUsage(ctx *ext.Context, command string) {
	if ctx.EffectiveUser == nil || ctx.EffectiveChat == nil {
		return
	}
	rec := storage.UsageRecord{
		UserID:    ctx.EffectiveUser.Id,
		Username:  ctx.EffectiveUser.Username,
		FirstName: ctx.EffectiveUser.FirstName,
		Command:   command,
	}
	if ctx.EffectiveChat.Type != "private" {
		gid := ctx.EffectiveChat.Id
		rec.GroupID = &gid
	}
	if err := s.store.RecordUsage(context.Background(), rec); err != nil {
		s.logger.Error().Err(err).Str("command", command).Int64("chat_id", ctx.EffectiveChat.Id).Msg("failed to record usage")
	}
	s.metrics.CommandsTotal.WithLabelValues(command).Inc()
}

func (s *Service) now() time.Time {
	return time.Now().UTC()
}
