package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EChistov/ydl-bot/db"
	"github.com/EChistov/ydl-bot/download"
	"github.com/EChistov/ydl-bot/lang"
	"github.com/EChistov/ydl-bot/notify"
	"github.com/EChistov/ydl-bot/retry"
	"github.com/EChistov/ydl-bot/telemetry"

	"github.com/google/uuid"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	b.collectUser(msg.From, msg.Chat.ID)
	language := lang.Choose(b.cfg.Lang, msg.From.LanguageCode)
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/id":
		b.sendText(msg.Chat.ID, fmt.Sprintf("%s %d", lang.Msg(language, lang.GetID), msg.From.ID))
	case text == "/start":
		b.handleStart(msg, language)
	case text == "/admin":
		if b.auth.IsAdmin(msg.From.ID) {
			b.sendAdminMenu(msg.Chat.ID)
		} else {
			b.sendText(msg.Chat.ID, lang.Msg(language, lang.NotAuthorized))
		}
	case !b.auth.IsUser(msg.From.ID):
		b.sendText(msg.Chat.ID, lang.Msg(language, lang.NotAuthorized))
	case isLink(text):
		b.actor.Insert(db.HistoryEntry{MsgText: text, UserID: msg.From.ID})
		b.downloadAndSend(ctx, msg.Chat.ID, msg.From.ID, text, language)
	default:
		b.sendText(msg.Chat.ID, lang.Msg(language, lang.InvalidMessage))
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message, language string) {
	switch {
	case b.auth.IsAdmin(msg.From.ID):
		b.sendText(msg.Chat.ID, lang.Msg(language, lang.AdminGranted))
	case b.auth.IsUser(msg.From.ID):
		b.sendText(msg.Chat.ID, lang.Msg(language, lang.UserGranted))
	default:
		b.sendText(msg.Chat.ID, fmt.Sprintf(lang.Msg(language, lang.StartUnauthorized), msg.From.FirstName))
	}
}

// isLink accepts only http(s) URLs with a host.
func isLink(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// downloadAndSend runs the whole pipeline for one link: probe, pick a
// bitrate, fetch, transcode, send the mp3, then clean up. One status message
// is posted up front and edited in place through the notification pool for
// every phase.
func (b *Bot) downloadAndSend(ctx context.Context, chatID, userID int64, link, language string) {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx).With(slog.Int64("user", userID))
	ctx, span := telemetry.StartSpan(ctx, "bot", "downloadAndSend")
	defer span.End()

	statusID := b.sendText(chatID, lang.Msg(language, lang.PrepareDownload))
	if statusID == 0 {
		log.Warn("could not post status message")
		return
	}
	target := notify.Target{ChatID: chatID, MessageID: statusID}
	fail := func(key lang.Key) {
		b.pool.Enqueue(notify.Envelope{
			Command: notify.CommandEdit, Target: target,
			Text: lang.Msg(language, key), WithRetry: true,
		})
	}

	// The probe is flaky against some hosts; retry it with the same policy
	// the notification pool uses.
	info, err := retry.Do(ctx, retry.Policy{MaxAttempts: b.cfg.MaxAttempts, Delay: b.cfg.RetryDelay},
		func() (*download.Info, error) { return download.Probe(ctx, link) })
	if err != nil {
		log.Warn("probe failed", slog.Any("err", err))
		telemetry.RecordError(span, err)
		fail(lang.ErrorGettingInfo)
		return
	}
	bitrate := download.PickBitrate(info.Duration, b.cfg.BitrateLadder)
	if bitrate == 0 {
		log.Info("video too long", slog.Int("duration", info.Duration))
		fail(lang.FileTooLong)
		return
	}

	title := download.SanitizeTitle(info.Title)
	if title == "" {
		title = uuid.NewString()
	}
	srcPath := filepath.Join(b.cfg.MP3Dir, title+"."+info.Ext)
	mp3Path := filepath.Join(b.cfg.MP3Dir, title+".mp3")

	caption := lang.Msg(language, lang.DownloadingFile) + " " + title
	b.pool.Enqueue(notify.Envelope{Command: notify.CommandEdit, Target: target, Text: caption, WithRetry: true})
	if err := download.Fetch(ctx, link, srcPath, b.pool.DownloadHook(target, caption)); err != nil {
		log.Warn("fetch failed", slog.Any("err", err))
		telemetry.RecordError(span, err)
		fail(lang.DownloadError)
		return
	}

	caption = lang.Msg(language, lang.ConvertingFile) + " " + title
	predicted := download.PredictSize(info.Duration, bitrate)
	sampleCtx, stopSampler := context.WithCancel(ctx)
	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		b.pool.SampleConvert(sampleCtx, mp3Path, predicted, target, caption)
	}()
	convErr := download.Convert(ctx, srcPath, mp3Path, bitrate)
	stopSampler()
	<-samplerDone
	if convErr != nil {
		log.Warn("convert failed", slog.Any("err", convErr))
		fail(lang.DownloadError)
		return
	}

	b.pool.Enqueue(notify.Envelope{
		Command: notify.CommandEdit, Target: target,
		Text:      lang.Msg(language, lang.DownloadingDone) + " " + title + "\n" + lang.Msg(language, lang.FileSendingStart),
		WithRetry: true,
	})
	if err := b.sendAudio(chatID, mp3Path, title); err != nil {
		log.Warn("send audio failed", slog.Any("err", err))
		fail(lang.FileSendingError)
	} else {
		b.pool.Enqueue(notify.Envelope{Command: notify.CommandDelete, Target: target, WithRetry: true})
		log.Info("mp3 delivered", slog.String("title", title), slog.Int("bitrate", bitrate))
	}
	if b.cfg.AutoDeleteFiles {
		os.Remove(srcPath)
		os.Remove(mp3Path)
	}
}

// sendAudio uploads the mp3. Telegram uploads of files near the size cap can
// take minutes; SendTimeout bounds the wait in a watchdog goroutine since the
// client itself takes no context.
func (b *Bot) sendAudio(chatID int64, path, title string) error {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
	audio.Title = title
	done := make(chan error, 1)
	go func() {
		_, err := b.api.Send(audio)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(b.cfg.SendTimeout):
		return fmt.Errorf("audio upload timed out after %s", b.cfg.SendTimeout)
	}
}
