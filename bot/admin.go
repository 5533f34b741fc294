package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EChistov/ydl-bot/db"
	"github.com/EChistov/ydl-bot/lang"
	"github.com/EChistov/ydl-bot/store"
)

// Callback data prefixes for the admin console. Data stays under Telegram's
// 64-byte limit: prefix plus at most a page number or user id.
const (
	cbMenu       = "menu"
	cbHistory    = "hist"
	cbUsers      = "users"
	cbUserDetail = "user"
	cbGrantUser  = "gu"
	cbGrantAdmin = "ga"
	cbDelHistory = "delhist"
	cbDelUnauth  = "delunauth"
	cbConfirm    = "yes"
	cbCancel     = "no"
	cbClose      = "close"
)

func (b *Bot) sendAdminMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Admin menu")
	msg.ReplyMarkup = adminMenuKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		slog.Warn("admin menu send failed", slog.Int64("chat", chatID), slog.Any("err", err))
	}
}

func adminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("History", cbHistory+":0"),
			tgbotapi.NewInlineKeyboardButtonData("Users", cbUsers+":0"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete all history", cbDelHistory),
			tgbotapi.NewInlineKeyboardButtonData("Delete unauthorized", cbDelUnauth),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Close", cbClose),
		),
	)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Every callback gets acked so the client stops its spinner.
	b.api.Request(tgbotapi.NewCallback(cq.ID, ""))
	if cq.Message == nil || cq.From == nil {
		return
	}
	language := lang.Choose(b.cfg.Lang, cq.From.LanguageCode)
	if !b.auth.IsAdmin(cq.From.ID) {
		b.editMenu(cq, lang.Msg(language, lang.NotAuthorized), nil)
		return
	}
	action, arg, _ := strings.Cut(cq.Data, ":")
	switch action {
	case cbMenu:
		b.editMenu(cq, "Admin menu", ptr(adminMenuKeyboard()))
	case cbClose:
		b.api.Request(tgbotapi.NewDeleteMessage(cq.Message.Chat.ID, cq.Message.MessageID))
	case cbHistory:
		b.showHistory(cq, language, atoiOr(arg, 0))
	case cbUsers:
		b.showUsers(cq, atoiOr(arg, 0))
	case cbUserDetail:
		b.showUserDetail(cq, language, atoi64Or(arg, 0))
	case cbGrantUser:
		b.togglePrivilege(cq, language, atoi64Or(arg, 0), db.TierUser)
	case cbGrantAdmin:
		b.togglePrivilege(cq, language, atoi64Or(arg, 0), db.TierAdmin)
	case cbDelHistory:
		b.editMenu(cq, "Delete the whole download history?", ptr(confirmKeyboard(cbDelHistory)))
	case cbDelUnauth:
		b.editMenu(cq, "Delete every user without a grant, including their history?", ptr(confirmKeyboard(cbDelUnauth)))
	case cbConfirm:
		b.runBulkDelete(cq, language, arg)
	case cbCancel:
		b.editMenu(cq, "Admin menu", ptr(adminMenuKeyboard()))
	}
}

func confirmKeyboard(what string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", cbConfirm+":"+what),
			tgbotapi.NewInlineKeyboardButtonData("No", cbCancel),
		),
	)
}

// showHistory renders one page of the download history in place.
func (b *Bot) showHistory(cq *tgbotapi.CallbackQuery, language string, page int) {
	per := b.cfg.HistoryPerPage
	rows, total, err := store.SelectEntriesAndCount(
		b.actor, db.HistoryPageQuery(page*per, per), db.HistoryCountQuery(), db.ScanHistory, store.SelectWait)
	if err != nil {
		slog.Warn("history page load failed", slog.Any("err", err))
		b.editMenu(cq, lang.Msg(language, lang.DBAnswerFail), ptr(backKeyboard()))
		return
	}
	if total == 0 {
		b.editMenu(cq, lang.Msg(language, lang.NoHistoryAnswer), ptr(backKeyboard()))
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "History %d/%d\n\n", page+1, pages(total, per))
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s  %s (%d)\n%s\n\n", r.CreatedAt.Format("2006-01-02 15:04"), r.FirstName, r.UserID, r.MsgText)
	}
	b.editMenu(cq, sb.String(), ptr(pagerKeyboard(cbHistory, page, pages(total, per))))
}

// showUsers renders one page of known users, one button per user.
func (b *Bot) showUsers(cq *tgbotapi.CallbackQuery, page int) {
	per := b.cfg.UsersPerPage
	rows, total, err := store.SelectEntriesAndCount(
		b.actor, db.UsersPageQuery(page*per, per), db.UsersCountQuery(), db.ScanUserRows, store.SelectWait)
	if err != nil {
		slog.Warn("users page load failed", slog.Any("err", err))
		b.editMenu(cq, lang.Msg(lang.Choose(b.cfg.Lang, cq.From.LanguageCode), lang.DBAnswerFail), ptr(backKeyboard()))
		return
	}
	var btns [][]tgbotapi.InlineKeyboardButton
	for _, r := range rows {
		label := fmt.Sprintf("%s %s %s%s", r.FirstName, r.LastName, r.UserName, grantMarks(r.IsUser, r.IsAdmin))
		btns = append(btns, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s:%d", cbUserDetail, r.ID)),
		))
	}
	btns = append(btns, pagerRow(cbUsers, page, pages(total, per)), backRow())
	b.editMenu(cq, fmt.Sprintf("Users %d/%d", page+1, pages(total, per)),
		ptr(tgbotapi.NewInlineKeyboardMarkup(btns...)))
}

func grantMarks(isUser, isAdmin *bool) string {
	var s string
	if isUser != nil && *isUser {
		s += " ✅"
	}
	if isAdmin != nil && *isAdmin {
		s += " \U0001F451"
	}
	return s
}

// showUserDetail renders the privilege editor for one user.
func (b *Bot) showUserDetail(cq *tgbotapi.CallbackQuery, language string, userID int64) {
	details, err := store.Select(b.actor, db.UserDetailQuery(userID), db.ScanUserDetails, store.SelectWait)
	if err != nil || len(details) == 0 {
		slog.Warn("user detail load failed", slog.Int64("user", userID), slog.Any("err", err))
		b.editMenu(cq, lang.Msg(language, lang.DBAnswerFail), ptr(backKeyboard()))
		return
	}
	d := details[0]
	userBtn := "Grant user"
	if d.IsUser != nil && *d.IsUser {
		userBtn = "Withdraw user"
	}
	adminBtn := "Grant admin"
	if d.IsAdmin != nil && *d.IsAdmin {
		adminBtn = "Withdraw admin"
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(userBtn, fmt.Sprintf("%s:%d", cbGrantUser, d.ID)),
			tgbotapi.NewInlineKeyboardButtonData(adminBtn, fmt.Sprintf("%s:%d", cbGrantAdmin, d.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back", cbUsers+":0"),
		),
	)
	text := fmt.Sprintf("%s %s (%s)\nid: %d%s", d.FirstName, d.LastName, d.UserName, d.ID, grantMarks(d.IsUser, d.IsAdmin))
	b.editMenu(cq, text, ptr(kb))
}

// togglePrivilege flips one grant, refreshes the permission caches and tells
// the affected user in their own language.
func (b *Bot) togglePrivilege(cq *tgbotapi.CallbackQuery, language string, userID int64, tier db.Tier) {
	details, err := store.Select(b.actor, db.UserDetailQuery(userID), db.ScanUserDetails, store.SelectWait)
	if err != nil || len(details) == 0 {
		b.editMenu(cq, lang.Msg(language, lang.DBAnswerFail), ptr(backKeyboard()))
		return
	}
	d := details[0]
	hasRow := d.IsUser != nil || d.IsAdmin != nil
	p := db.Permission{UserID: userID}
	if d.IsUser != nil {
		p.IsUser = *d.IsUser
	}
	if d.IsAdmin != nil {
		p.IsAdmin = *d.IsAdmin
	}
	switch tier {
	case db.TierUser:
		p.IsUser = !p.IsUser
	case db.TierAdmin:
		p.IsAdmin = !p.IsAdmin
	}

	var ok bool
	if hasRow {
		ok = b.actor.UpdateWait(p.UpdateStatement(), store.StatusWait)
	} else {
		ok = b.actor.InsertWait(p, store.StatusWait)
	}
	if !ok {
		b.editMenu(cq, lang.Msg(language, lang.DBAnswerFail), ptr(backKeyboard()))
		return
	}
	b.auth.Refresh()
	b.notifyGrantChange(d, p)
	slog.Info("privilege changed", slog.Int64("user", userID), slog.String("tier", string(tier)),
		slog.Bool("is_user", p.IsUser), slog.Bool("is_admin", p.IsAdmin))
	b.showUserDetail(cq, language, userID)
}

func (b *Bot) notifyGrantChange(d db.UserDetail, p db.Permission) {
	if d.ChatID == 0 {
		return
	}
	userLang := lang.Choose(b.cfg.Lang, d.LanguageCode)
	var key lang.Key
	switch {
	case p.IsAdmin:
		key = lang.AdminGranted
	case p.IsUser:
		key = lang.UserGranted
	default:
		key = lang.FlushPrivileges
	}
	b.sendText(d.ChatID, lang.Msg(userLang, key))
}

// runBulkDelete executes a confirmed destructive action through the storage
// actor with the long delete wait.
func (b *Bot) runBulkDelete(cq *tgbotapi.CallbackQuery, language, what string) {
	switch what {
	case cbDelHistory:
		if !b.actor.DeleteWait(db.DeleteHistoryStatements(), store.DeleteWait) {
			b.editMenu(cq, lang.Msg(language, lang.DBAnswerFail), ptr(backKeyboard()))
			return
		}
		slog.Info("download history deleted", slog.Int64("admin", cq.From.ID))
		b.editMenu(cq, "History deleted.", ptr(backKeyboard()))
	case cbDelUnauth:
		ids, err := store.Select(b.actor, db.UnauthorizedIDsQuery(), db.ScanIDs, store.SelectWait)
		if err != nil {
			b.editMenu(cq, lang.Msg(language, lang.DBAnswerFail), ptr(backKeyboard()))
			return
		}
		ids = b.withoutProtected(ids)
		if len(ids) == 0 {
			b.editMenu(cq, "No unauthorized users to delete.", ptr(backKeyboard()))
			return
		}
		if !b.actor.DeleteWait(db.DeleteUsersStatements(ids), store.DeleteWait) {
			b.editMenu(cq, lang.Msg(language, lang.DBAnswerFail), ptr(backKeyboard()))
			return
		}
		for _, id := range ids {
			b.known.drop(id)
		}
		slog.Info("unauthorized users deleted", slog.Int("count", len(ids)), slog.Int64("admin", cq.From.ID))
		b.editMenu(cq, fmt.Sprintf("Deleted %d users.", len(ids)), ptr(backKeyboard()))
	}
}

// withoutProtected filters configured super admins out of a bulk delete. A
// super admin without a grant row must survive the purge.
func (b *Bot) withoutProtected(ids []int64) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if !b.cfg.IsSuperAdmin(id) {
			out = append(out, id)
		}
	}
	return out
}

func (b *Bot) editMenu(cq *tgbotapi.CallbackQuery, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	chatID, msgID := cq.Message.Chat.ID, cq.Message.MessageID
	var err error
	if kb != nil {
		_, err = b.api.Request(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, *kb))
	} else {
		_, err = b.api.Request(tgbotapi.NewEditMessageText(chatID, msgID, text))
	}
	if err != nil {
		slog.Warn("admin menu edit failed", slog.Int64("chat", chatID), slog.Any("err", err))
	}
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(backRow())
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Back", cbMenu))
}

func pagerKeyboard(prefix string, page, total int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(pagerRow(prefix, page, total), backRow())
}

func pagerRow(prefix string, page, total int) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	if page > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅", fmt.Sprintf("%s:%d", prefix, page-1)))
	}
	if page+1 < total {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("➡", fmt.Sprintf("%s:%d", prefix, page+1)))
	}
	if row == nil {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("·", prefix+":"+strconv.Itoa(page)))
	}
	return row
}

func pages(total int64, per int) int {
	if per <= 0 {
		return 1
	}
	n := int((total + int64(per) - 1) / int64(per))
	if n == 0 {
		n = 1
	}
	return n
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func atoi64Or(s string, def int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func ptr[T any](v T) *T { return &v }
