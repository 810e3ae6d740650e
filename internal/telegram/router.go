// Package telegram turns a bot chat into a capture surface: caregivers
// send photos from their phone camera, the bot stages, submits and
// renders the analysis.
package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"carelens/internal/analysis"
	"carelens/internal/imaging"
	"carelens/internal/session"
)

// debounce is how long after the last photo of an album we wait before
// submitting the batch.
const debounce = 1200 * time.Millisecond

type Router struct {
	Bot      *tgbotapi.BotAPI
	Analyzer session.Analyzer
	Imaging  imaging.Options
	Log      *logrus.Entry

	flows sync.Map // chatID -> *chatFlow
}

// chatFlow is one chat's session plus the album debounce timer.
type chatFlow struct {
	sess *session.Session

	mu    sync.Mutex
	timer *time.Timer
}

func NewRouter(bot *tgbotapi.BotAPI, analyzer session.Analyzer, imgOpts imaging.Options) *Router {
	return &Router{
		Bot:      bot,
		Analyzer: analyzer,
		Imaging:  imgOpts,
		Log:      logrus.WithField("component", "telegram"),
	}
}

func (r *Router) flow(chatID int64) *chatFlow {
	fi, _ := r.flows.LoadOrStore(chatID, &chatFlow{sess: session.New(r.Analyzer)})
	return fi.(*chatFlow)
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.handleCommand(cid, upd.Message)
		return
	}
	if len(upd.Message.Photo) > 0 {
		r.acceptPhoto(*upd.Message)
		return
	}
	if upd.Message.Document != nil {
		r.acceptDocument(*upd.Message)
		return
	}
	if upd.Message.Text != "" {
		r.send(cid, "Send a photo of a care document or of the room. Commands: /kind, /retry, /reset, /health")
	}
}

func (r *Router) handleCommand(cid int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		greeting := "Send photos of a fall report, care note or medication chart and I will summarize them, " +
			"suggest prevention measures and draft a handover note.\n" +
			"Photos of a resident's room work too: switch with /kind.\n" +
			"Commands: /kind, /retry, /reset, /health"
		out := tgbotapi.NewMessage(cid, greeting)
		out.ReplyMarkup = makeKindKeyboard()
		_, _ = r.Bot.Send(out)
	case "health":
		r.send(cid, "✅ OK")
	case "kind":
		arg := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(msg.Text, "/kind")))
		if arg == "" {
			out := tgbotapi.NewMessage(cid, "What are you photographing?")
			out.ReplyMarkup = makeKindKeyboard()
			_, _ = r.Bot.Send(out)
			return
		}
		r.switchKind(cid, arg)
	case "retry":
		go r.retry(cid)
	case "reset":
		f := r.flow(cid)
		if err := f.sess.Reset(); err != nil {
			r.send(cid, "Nothing to reset right now: "+err.Error())
			return
		}
		r.send(cid, "Cleared. Send new photos when ready.")
	default:
		r.send(cid, "Unknown command. Available: /kind, /retry, /reset, /health")
	}
}

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch cb.Data {
	case "kind_document", "kind_environment":
		edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{})
		_, _ = r.Bot.Send(edit)
		r.switchKind(cid, strings.TrimPrefix(cb.Data, "kind_"))
	}
}

func (r *Router) switchKind(cid int64, name string) {
	kind, err := kindFromString(name)
	if err != nil {
		r.send(cid, err.Error())
		return
	}
	f := r.flow(cid)
	if err := f.sess.SetKind(kind); err != nil {
		r.send(cid, "Finish or /reset the current analysis before switching.")
		return
	}
	switch kind {
	case analysis.KindEnvironment:
		r.send(cid, "✅ Room assessment mode. Send photos of the space to check for fall hazards.")
	default:
		r.send(cid, "✅ Document mode. Send photos of the care document to read.")
	}
}

func (r *Router) retry(cid int64) {
	f := r.flow(cid)
	if err := f.sess.Retry(context.Background()); err != nil {
		if f.sess.State() == session.StateError {
			r.send(cid, guidance(err))
			return
		}
		r.send(cid, "Nothing to retry: send photos first.")
		return
	}
	r.sendResult(cid, f.sess.Result())
	_ = f.sess.Reset()
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) sendResult(chatID int64, res analysis.Result) {
	text := renderResult(res)
	if len(text) > 3900 {
		text = text[:3900] + "…"
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	_, _ = r.Bot.Send(msg)
}
