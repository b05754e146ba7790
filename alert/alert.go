// Package alert posts operational notices to a Discord webhook.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pixelplay/config"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"golang.org/x/time/rate"
)

const sendTimeout = 10 * time.Second

// Notifier receives upstream failures observed while serving requests and
// reachability changes seen by the monitor. Implementations must not block
// the caller.
type Notifier interface {
	UpstreamFailure(id string, err error)
	UpstreamStatus(reachable bool, err error)
}

// Nop discards every notice. It is used when no webhook is configured.
type Nop struct{}

func (Nop) UpstreamFailure(string, error) {}

func (Nop) UpstreamStatus(bool, error) {}

type embedSender interface {
	CreateEmbeds(embeds []discord.Embed, opts ...rest.RequestOpt) (*discord.Message, error)
}

// Discord sends notices to a Discord webhook, dropping the ones above the
// configured rate.
type Discord struct {
	sender  embedSender
	close   func(ctx context.Context)
	limiter *rate.Limiter
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// New returns a Discord notifier, or Nop when no webhook URL is configured.
func New(cfg config.AlertsConfig) (Notifier, error) {
	if cfg.DiscordWebhookURL == "" {
		return Nop{}, nil
	}

	client, err := webhook.NewWithURL(cfg.DiscordWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord webhook client: %w", err)
	}

	d := newDiscord(client, cfg.PerMinute)
	d.close = client.Close
	return d, nil
}

func newDiscord(sender embedSender, perMinute int) *Discord {
	return &Discord{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		logger:  slog.With("component", "alert"),
	}
}

// UpstreamFailure posts an embed describing a failed upstream fetch.
func (d *Discord) UpstreamFailure(id string, err error) {
	if !d.limiter.Allow() {
		d.logger.Debug("Alert rate limited", slog.String("id", id))
		return
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("Upstream failure").
		SetDescription(err.Error()).
		AddField("File", id, true).
		SetColor(0xff0000).
		SetTimestamp(time.Now()).
		Build()

	d.send(embed, slog.String("id", id))
}

// UpstreamStatus posts a reachability change. These are rare and are not
// rate limited.
func (d *Discord) UpstreamStatus(reachable bool, err error) {
	b := discord.NewEmbedBuilder().SetTimestamp(time.Now())
	if reachable {
		b.SetTitle("Upstream reachable").
			SetDescription("The file host answers again.").
			SetColor(0x2ecc71)
	} else {
		b.SetTitle("Upstream unreachable").
			SetColor(0xff0000)
		if err != nil {
			b.SetDescription(err.Error())
		}
	}

	d.send(b.Build(), slog.Bool("reachable", reachable))
}

func (d *Discord) send(embed discord.Embed, attr slog.Attr) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if _, err := d.sender.CreateEmbeds([]discord.Embed{embed}, rest.WithCtx(ctx)); err != nil {
			d.logger.Error("Failed to send Discord alert", attr, slog.Any("error", err))
			return
		}
		d.logger.Debug("Sent Discord alert", attr)
	}()
}

// Close waits for in-flight notices and releases the webhook client.
func (d *Discord) Close(ctx context.Context) {
	d.wg.Wait()
	if d.close != nil {
		d.close(ctx)
	}
}
