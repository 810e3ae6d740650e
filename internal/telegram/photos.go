package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"carelens/internal/imaging"
	"carelens/internal/session"
)

func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1] // largest rendition last
	r.stageFile(cid, ph.FileID)
}

// acceptDocument covers photos sent as files, which skips Telegram's own
// recompression.
func (r *Router) acceptDocument(msg tgbotapi.Message) {
	doc := msg.Document
	if !strings.HasPrefix(doc.MimeType, "image/") {
		r.send(msg.Chat.ID, "I can only analyze images. Send the photo directly or as an image file.")
		return
	}
	r.stageFile(msg.Chat.ID, doc.FileID)
}

func (r *Router) stageFile(cid int64, fileID string) {
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		r.send(cid, "Could not fetch that photo from Telegram, try sending it again.")
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	raw, err := download(url)
	if err != nil {
		r.Log.WithError(err).Warn("photo download failed")
		r.send(cid, "Could not fetch that photo from Telegram, try sending it again.")
		return
	}

	normalized, err := imaging.Normalize(raw, r.Imaging)
	if err != nil {
		// one bad image never poisons the rest of the album
		r.send(cid, "That image could not be read, so I skipped it. The other photos are still staged.")
		return
	}

	f := r.flow(cid)
	if _, err := f.sess.Stage(normalized, "image/jpeg"); err != nil {
		if f.sess.State() == session.StateAnalyzing {
			r.send(cid, "An analysis is still running. Wait for it, then send photos again.")
		} else {
			r.send(cid, "The last analysis is still open. /retry runs it again, /reset starts a new one.")
		}
		return
	}

	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(debounce, func() { r.processFlow(cid) })
	f.mu.Unlock()

	if len(f.sess.Staged()) == 1 {
		r.send(cid, "Photo staged. Send more of the same case if you have them, I will analyze everything together.")
	}
}

func (r *Router) processFlow(cid int64) {
	f := r.flow(cid)

	count := len(f.sess.Staged())
	if count == 0 {
		return
	}
	r.send(cid, fmt.Sprintf("Analyzing %d photo(s)…", count))

	if err := f.sess.Submit(context.Background()); err != nil {
		if errors.Is(err, session.ErrBusy) {
			return
		}
		r.send(cid, guidance(err))
		return
	}
	r.sendResult(cid, f.sess.Result())
	_ = f.sess.Reset()
}

func download(url string) ([]byte, error) {
	resp, err := httpClient().Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
