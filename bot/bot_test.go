package bot

import (
	"testing"

	"github.com/EChistov/ydl-bot/config"
)

func TestIsLink(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://youtube.com/watch?v=abc", true},
		{"http://example.org/clip", true},
		{"ftp://example.org/file", false},
		{"just some text", false},
		{"/start", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := isLink(tt.in); got != tt.want {
			t.Errorf("isLink(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPages(t *testing.T) {
	tests := []struct {
		total int64
		per   int
		want  int
	}{
		{0, 5, 1},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{11, 5, 3},
		{10, 0, 1},
	}
	for _, tt := range tests {
		if got := pages(tt.total, tt.per); got != tt.want {
			t.Errorf("pages(%d, %d) = %d, want %d", tt.total, tt.per, got, tt.want)
		}
	}
}

func TestPagerRow(t *testing.T) {
	if row := pagerRow(cbHistory, 0, 1); len(row) != 1 {
		t.Errorf("single page pager has %d buttons, want 1 placeholder", len(row))
	}
	row := pagerRow(cbHistory, 0, 3)
	if len(row) != 1 || *row[0].CallbackData != "hist:1" {
		t.Errorf("first page pager = %+v, want one forward button to hist:1", row)
	}
	row = pagerRow(cbHistory, 1, 3)
	if len(row) != 2 || *row[0].CallbackData != "hist:0" || *row[1].CallbackData != "hist:2" {
		t.Errorf("middle page pager = %+v, want back and forward buttons", row)
	}
	row = pagerRow(cbHistory, 2, 3)
	if len(row) != 1 || *row[0].CallbackData != "hist:1" {
		t.Errorf("last page pager = %+v, want one back button to hist:1", row)
	}
}

func TestWithoutProtected(t *testing.T) {
	b := &Bot{cfg: &config.Config{SuperAdmins: map[int64]struct{}{7: {}}}}
	got := b.withoutProtected([]int64{1, 7, 3})
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("withoutProtected = %v, want [1 3]", got)
	}
}

func TestBotCommandsCoverMenu(t *testing.T) {
	cmds := botCommands()
	want := map[string]bool{"id": false, "admin": false}
	for _, c := range cmds {
		if _, ok := want[c.Command]; ok {
			want[c.Command] = true
		}
		if c.Description == "" {
			t.Errorf("command %q has no description", c.Command)
		}
	}
	for cmd, seen := range want {
		if !seen {
			t.Errorf("command menu is missing /%s", cmd)
		}
	}
}

func TestGrantMarks(t *testing.T) {
	yes, no := true, false
	if grantMarks(nil, nil) != "" {
		t.Error("no grant row should render no marks")
	}
	if grantMarks(&yes, nil) == "" {
		t.Error("user grant should render a mark")
	}
	if grantMarks(&no, &no) != "" {
		t.Error("revoked grants should render no marks")
	}
	if got := grantMarks(&yes, &yes); len(got) == 0 {
		t.Errorf("admin grant marks missing: %q", got)
	}
}
