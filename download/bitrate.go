package download

import (
	"strings"
	"unicode"
)

// telegramLimit is the hard 50 MB bot-API upload cap, in bytes.
const telegramLimit = 50 * 1000 * 1000

// PickBitrate walks the ladder from highest to lowest and returns the first
// bitrate whose predicted file size fits under the Telegram limit. A zero
// return means even the lowest rung is too big for this duration.
func PickBitrate(durationSec int, ladder []int) int {
	for _, kbps := range ladder {
		if PredictSize(durationSec, kbps) < telegramLimit {
			return kbps
		}
	}
	return 0
}

// PredictSize estimates the mp3 size in bytes for a duration at a CBR bitrate.
func PredictSize(durationSec, kbps int) int64 {
	return int64(durationSec) * int64(kbps) / 8 * 1000
}

// SanitizeTitle strips emoji and path-hostile characters from a video title
// so it can be used as a filename.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case r > unicode.MaxLatin1 && !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsPunct(r) && !unicode.IsSpace(r):
			// emoji and other symbols
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
