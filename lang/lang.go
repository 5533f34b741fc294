// Package lang holds the bot's localized message strings and the per-user
// language selection rule. English is the fallback for unknown language codes.
package lang

import "strings"

// Key identifies one localized message.
type Key string

const (
	PrepareDownload   Key = "prepare_download"
	ErrorGettingInfo  Key = "error_getting_ydl_info"
	GetID             Key = "get_id"
	NotAuthorized     Key = "not_authorized"
	DownloadingDone   Key = "downloading_done"
	FileSendingStart  Key = "file_sending_started"
	DownloadingFile   Key = "downloading_file"
	ConvertingFile    Key = "converting_file"
	DBAnswerFail      Key = "db_answer_fail"
	NoHistoryAnswer   Key = "no_history_answer"
	AdminGranted      Key = "admin_granted"
	UserGranted       Key = "user_granted"
	FlushPrivileges   Key = "flush_privileges"
	FileSendingError  Key = "file_sending_error"
	InvalidMessage    Key = "invalid_message"
	FileTooLong       Key = "file_too_long"
	StartUnauthorized Key = "start_unauth"
	DownloadError     Key = "download_error"
)

var messages = map[string]map[Key]string{
	"EN": {
		PrepareDownload:  "Downloading will start in a few seconds... or not...",
		ErrorGettingInfo: "Cannot get preliminary information about the video.",
		GetID:            "Your ID is:",
		NotAuthorized:    "You are not authorized.",
		DownloadingDone:  "File downloading has finished:",
		FileSendingStart: "File sending has begun.",
		DownloadingFile:  "Downloading file:",
		ConvertingFile:   "Converting file:",
		DBAnswerFail:     "Something went wrong with the answer from the database.",
		NoHistoryAnswer:  "There are no history messages found.",
		AdminGranted: "Your privileges have been changed to administrative. You can access the admin menu using " +
			"/admin command. You can also send a link with a video to the bot, and it will send you an mp3 file.",
		UserGranted: "Your privileges have been changed to user. Now you can send a link with a video to the bot, " +
			"and it will send you an mp3 file.",
		FlushPrivileges:   "Your privileges have been changed. You have no privileges to use the bot right now. Sorry.",
		FileSendingError:  "ERROR: Can't send audio file.",
		InvalidMessage:    "Invalid message. Only links are accepted.",
		FileTooLong:       "Sorry, the video is too long and cannot be sent.",
		StartUnauthorized: "Hi %s, please contact the person who has given you the bot name to grant you user privileges.",
		DownloadError:     "Problem with downloading or postprocessing.",
	},
	"RU": {
		PrepareDownload:  "Сейчас пойдет загрузка....или нет...",
		ErrorGettingInfo: "Не получается получить предварительную информацию по видео",
		GetID:            "Ваш Id:",
		NotAuthorized:    "Вы не авторизованы",
		DownloadingDone:  "Загрузка файла завершена:",
		FileSendingStart: "Отправка файла",
		DownloadingFile:  "Загрузка файла:",
		ConvertingFile:   "Конвертация файла:",
		DBAnswerFail:     "Проблема с получением ответа из базы данных",
		NoHistoryAnswer:  "Истории скачиваний не найдено",
		AdminGranted: "ваши права были повышены до административных, у вас есть доступ в меню администратора " +
			"(команда /admin), вы также можете отправить боту ссылку на видео и он вернет вам mp3 файл",
		UserGranted: "ваши права были повышены до пользовательских, вы можете отправить боту ссылку на видео и он " +
			"вернет вам mp3 файл",
		FlushPrivileges:   "к сожалению, вы были лишены прав пользования ботом",
		FileSendingError:  "Ошибка, проблема при отправке аудиофайла",
		InvalidMessage:    "Неправильный формат сообщения, Бот принимает только ссылки",
		FileTooLong:       "Файл слишком длинный и не может быть отправлен",
		StartUnauthorized: "Добрый день %s, свяжитесь с тем, кто дал вам имя этого бота и попросите у него права пользователя",
		DownloadError:     "Проблема при загрузке или конвертации",
	},
}

// Choose resolves the language to use for a user. mode is the configured
// language mode ("auto" or a forced code); code is the user's Telegram
// language code. Unknown codes fall back to EN.
func Choose(mode, code string) string {
	if mode != "auto" {
		if _, ok := messages[strings.ToUpper(mode)]; ok {
			return strings.ToUpper(mode)
		}
		return "EN"
	}
	code = strings.ToUpper(code)
	if _, ok := messages[code]; ok {
		return code
	}
	return "EN"
}

// Msg returns the localized string for key in the given language.
func Msg(language string, key Key) string {
	if m, ok := messages[language]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return messages["EN"][key]
}
