package notify

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/EChistov/ydl-bot/download"
)

// barCells is the width of the text progress bar in message edits.
const barCells = 20

// Bar renders a 20-cell progress bar for a percentage in [0,100].
// Out-of-range input is clamped.
func Bar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent / 5
	var b strings.Builder
	b.WriteString(strings.Repeat("■", filled))
	b.WriteString(strings.Repeat("□", barCells-filled))
	fmt.Fprintf(&b, " %3d%%", percent)
	return b.String()
}

// DownloadHook adapts download progress samples into status-message edits on
// the pool. Intermediate frames are throttled to one per second and dropped
// when the queue is full; the finished frame always lands, with retries.
func (p *Pool) DownloadHook(target Target, caption string) download.ProgressFunc {
	var mu sync.Mutex
	var last time.Time
	return func(st download.Status) {
		if st.State == "finished" {
			p.Enqueue(Envelope{
				Command:   CommandEdit,
				Target:    target,
				Text:      caption + "\n" + Bar(100),
				WithRetry: true,
			})
			return
		}
		mu.Lock()
		due := time.Since(last) >= time.Second
		if due {
			last = time.Now()
		}
		mu.Unlock()
		if !due {
			return
		}
		pct := download.PercentToInt(st.Percent)
		if pct < 0 {
			return
		}
		p.TryEnqueue(Envelope{
			Command: CommandEdit,
			Target:  target,
			Text:    caption + "\n" + Bar(pct),
		})
	}
}

// SampleConvert watches the growing mp3 at path while ffmpeg runs and edits
// the status message with an estimated percentage once a second. It returns
// when ctx is cancelled, which the caller does as soon as Convert returns.
// Every frame is best effort: the caller's own follow-up edit (done or
// failed) is the final word on this message, and a must-land 100% frame here
// would race it across pool workers.
func (p *Pool) SampleConvert(ctx context.Context, path string, predicted int64, target Target, caption string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fi, err := os.Stat(path)
			if err != nil || predicted <= 0 {
				continue
			}
			pct := int(fi.Size() * 100 / predicted)
			if pct > 99 {
				pct = 99
			}
			p.TryEnqueue(Envelope{
				Command: CommandEdit,
				Target:  target,
				Text:    caption + "\n" + Bar(pct),
			})
		}
	}
}
