// Package download drives yt-dlp and ffmpeg to turn a video link into an mp3
// small enough for Telegram's upload limit. Progress flows out through a hook
// callback; transcode progress has no hook and is sampled from the output
// file size by the caller.
package download

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/EChistov/ydl-bot/telemetry"
)

// Status is one progress-hook sample.
type Status struct {
	// State is "downloading" or "finished".
	State string
	// Filename is the file being produced.
	Filename string
	// Percent is the raw percent string as printed by yt-dlp, e.g. " 89.4%".
	Percent string
}

// ProgressFunc consumes progress samples. It must be cheap: it runs on the
// pipe-reader goroutine.
type ProgressFunc func(Status)

// Info is the probe result used to pick a bitrate before downloading.
type Info struct {
	Title    string
	Duration int // seconds
	Ext      string
}

// Probe asks yt-dlp for video metadata without downloading.
func Probe(ctx context.Context, url string) (*Info, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp", "-J", "--no-playlist", url)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe: %w", err)
	}
	var raw struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
		Ext      string  `json:"ext"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("yt-dlp probe decode: %w", err)
	}
	if raw.Ext == "" {
		raw.Ext = "webm"
	}
	return &Info{Title: raw.Title, Duration: int(raw.Duration), Ext: raw.Ext}, nil
}

// progressRe matches yt-dlp progress lines like
// "[download]   4.3% of ~2.19GiB at 3.05MiB/s ETA 11:22".
var progressRe = regexp.MustCompile(`(?i)\[download\]\s+([0-9.]+%)`)

// Fetch downloads the best audio stream to outPath, reporting progress via
// hook. The final "finished" sample is always delivered on success.
func Fetch(ctx context.Context, url, outPath string, hook ProgressFunc) error {
	start := time.Now()
	args := []string{
		"--newline",
		"--no-playlist",
		"-f", "bestaudio/best",
		"-o", outPath,
		url,
	}
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("yt-dlp pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("yt-dlp start: %w", err)
	}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if m := progressRe.FindStringSubmatch(scanner.Text()); m != nil && hook != nil {
			hook(Status{State: "downloading", Filename: filepath.Base(outPath), Percent: m[1]})
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("yt-dlp output read failed", slog.Any("err", err))
	}
	if err := cmd.Wait(); err != nil {
		telemetry.DownloadsFailed.Inc()
		return fmt.Errorf("yt-dlp: %w", err)
	}
	telemetry.DownloadsSucceeded.Inc()
	telemetry.DownloadDuration.Observe(time.Since(start).Seconds())
	if hook != nil {
		hook(Status{State: "finished", Filename: filepath.Base(outPath), Percent: "100%"})
	}
	return nil
}

// Convert extracts an mp3 at the given bitrate. The output appears at
// outPath while ffmpeg runs, so a sampler may watch its size grow.
func Convert(ctx context.Context, inPath, outPath string, bitrate int) error {
	start := time.Now()
	args := []string{"-y", "-i", inPath, "-vn", "-c:a", "libmp3lame", "-b:a", fmt.Sprintf("%dk", bitrate), outPath}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		slog.Warn("ffmpeg failed", slog.Any("err", err), slog.String("out", tail(string(out))))
		return fmt.Errorf("ffmpeg: %w", err)
	}
	telemetry.ConversionsFinished.Inc()
	telemetry.ConvertDuration.Observe(time.Since(start).Seconds())
	return nil
}

// tail keeps the last part of process output for a log line.
func tail(s string) string {
	const keep = 400
	if len(s) <= keep {
		return s
	}
	return s[len(s)-keep:]
}

// PercentToInt turns a yt-dlp percent string like " 89.4%" into 89.
// Malformed input yields -1.
func PercentToInt(s string) int {
	f, err := strconv.ParseFloat(trimPercent(s), 64)
	if err != nil {
		return -1
	}
	return int(f)
}

func trimPercent(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '%':
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
