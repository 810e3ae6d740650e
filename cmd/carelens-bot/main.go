package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"carelens/internal/client"
	"carelens/internal/config"
	"carelens/internal/imaging"
	"carelens/internal/telegram"
)

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	if cfg.TelegramBotToken == "" {
		logrus.Fatal("TELEGRAM_BOT_TOKEN is empty")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logrus.Fatal(err)
	}
	bot.Debug = false

	r := telegram.NewRouter(bot, client.New(cfg.BaseURL, cfg.Timeout), imaging.Options{
		MaxEdge: cfg.MaxEdge,
		Quality: cfg.JPEGQuality,
	})

	// ListenForWebhook registers its handler on the default mux, so the
	// health endpoint lives there too and both modes share one server.
	http.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	logrus.WithFields(logrus.Fields{
		"account": bot.Self.UserName,
		"proxy":   cfg.BaseURL,
	}).Info("bot authorized")

	if cfg.WebhookURL != "" {
		startWebhookMode(cfg.BotAddr, bot, r, cfg.WebhookURL)
	} else {
		startPollingMode(cfg.BotAddr, bot, r)
	}
}

func startWebhookMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	// The token never appears in the URL; a stable hash of it does.
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		logrus.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		logrus.Fatal(err)
	}

	updates := bot.ListenForWebhook(path)

	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		logrus.Warn("webhook updates channel closed")
	}()

	logrus.WithField("addr", addr).WithField("path", path).Info("webhook listening")
	logrus.Fatal(http.ListenAndServe(addr, nil))
}

func startPollingMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router) {
	go func() {
		logrus.WithField("addr", addr).Info("health server listening")
		logrus.Fatal(http.ListenAndServe(addr, nil))
	}()

	// Resilient polling: errors back off and retry, never exit.
	runPolling(context.Background(), bot, r.HandleUpdate)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

// retryDelayFromError picks a backoff for a failed GetUpdates call.
// Telegram's flood control announces its own delay; honor it when present.
func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			logrus.Info("polling stopped")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			logrus.WithError(err).WithField("retry_in", d.String()).Warn("polling error")
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// shortHash is a stable non-cryptographic digest used for the webhook path.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
