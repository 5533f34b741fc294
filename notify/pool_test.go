package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EChistov/ydl-bot/retry"
)

// recordingMessenger counts every outbound call and can be told to fail.
type recordingMessenger struct {
	mu      sync.Mutex
	edits   map[string]int
	deletes int
	fail    error
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{edits: make(map[string]int)}
}

func (m *recordingMessenger) EditMessageText(chatID int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits[text]++
	return m.fail
}

func (m *recordingMessenger) DeleteMessage(chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	return m.fail
}

func (m *recordingMessenger) editCount(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edits[text]
}

func TestPoolAppliesEveryEditExactlyOnce(t *testing.T) {
	m := newRecordingMessenger()
	p := NewPool(m, 4, retry.Policy{MaxAttempts: 1})
	p.Start(context.Background())

	const k = 100
	for i := 0; i < k; i++ {
		p.Enqueue(Envelope{
			Command: CommandEdit,
			Target:  Target{ChatID: 1, MessageID: i},
			Text:    fmt.Sprintf("frame %d", i),
		})
	}
	p.Close()
	p.Wait()

	for i := 0; i < k; i++ {
		if got := m.editCount(fmt.Sprintf("frame %d", i)); got != 1 {
			t.Errorf("frame %d applied %d times, want 1", i, got)
		}
	}
}

func TestCloseStopsEveryWorker(t *testing.T) {
	p := NewPool(newRecordingMessenger(), 3, retry.Policy{MaxAttempts: 1})
	p.Start(context.Background())
	p.Close()

	done := make(chan struct{})
	go func() { p.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not exit after Close")
	}
}

func TestTryEnqueueDropsWhenFull(t *testing.T) {
	// Unstarted pool: nothing drains the queue, so it fills to capacity.
	p := NewPool(newRecordingMessenger(), 1, retry.Policy{MaxAttempts: 1})
	for i := 0; i < queueCapacity; i++ {
		if !p.TryEnqueue(Envelope{Command: CommandEdit, Text: "x"}) {
			t.Fatalf("queue rejected envelope %d below capacity", i)
		}
	}
	if p.TryEnqueue(Envelope{Command: CommandEdit, Text: "overflow"}) {
		t.Error("TryEnqueue accepted an envelope past capacity")
	}
}

func TestRetryRoutingOnFailure(t *testing.T) {
	m := newRecordingMessenger()
	m.fail = errors.New("telegram is down")
	p := NewPool(m, 1, retry.Policy{MaxAttempts: 3, Delay: time.Millisecond})
	p.Start(context.Background())

	p.Enqueue(Envelope{Command: CommandEdit, Target: Target{ChatID: 7}, Text: "must land", WithRetry: true})
	p.Enqueue(Envelope{Command: CommandEdit, Target: Target{ChatID: 7}, Text: "best effort"})
	p.Close()
	p.Wait()

	if got := m.editCount("must land"); got != 3 {
		t.Errorf("retried edit attempted %d times, want 3", got)
	}
	if got := m.editCount("best effort"); got != 1 {
		t.Errorf("best-effort edit attempted %d times, want 1", got)
	}
}

func TestEmptyEditSkipped(t *testing.T) {
	m := newRecordingMessenger()
	p := NewPool(m, 1, retry.Policy{MaxAttempts: 1})
	p.Start(context.Background())
	p.Enqueue(Envelope{Command: CommandEdit, Text: ""})
	p.Enqueue(Envelope{Command: CommandDelete, Target: Target{ChatID: 1, MessageID: 2}})
	p.Close()
	p.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) != 0 {
		t.Errorf("empty edit reached the messenger: %v", m.edits)
	}
	if m.deletes != 1 {
		t.Errorf("deletes = %d, want 1", m.deletes)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		percent int
		filled  int
		label   string
	}{
		{0, 0, "  0%"},
		{42, 8, " 42%"},
		{100, 20, "100%"},
		{-5, 0, "  0%"},
		{150, 20, "100%"},
	}
	for _, tt := range tests {
		got := Bar(tt.percent)
		if n := strings.Count(got, "■"); n != tt.filled {
			t.Errorf("Bar(%d) filled cells = %d, want %d", tt.percent, n, tt.filled)
		}
		if n := strings.Count(got, "□"); n != barCells-tt.filled {
			t.Errorf("Bar(%d) empty cells = %d, want %d", tt.percent, n, barCells-tt.filled)
		}
		if !strings.HasSuffix(got, tt.label) {
			t.Errorf("Bar(%d) = %q, want suffix %q", tt.percent, got, tt.label)
		}
	}
}
