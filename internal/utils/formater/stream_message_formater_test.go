package formater

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"twitch_stream_monitor/internal/models"
)

func makeStreams(gameName string, n int) []models.Stream {
	streams := make([]models.Stream, 0, n)
	for i := 0; i < n; i++ {
		streams = append(streams, models.Stream{
			StreamId:    fmt.Sprintf("s%d", i),
			UserId:      fmt.Sprintf("u%d", i),
			UserName:    fmt.Sprintf("streamer%d", i),
			UserLogin:   fmt.Sprintf("streamer%d", i),
			GameName:    gameName,
			Title:       fmt.Sprintf("title %d", i),
			ViewerCount: uint64(i + 1),
		})
	}
	return streams
}

func TestFormatStreamMessages_SingleUnitNoFooter(t *testing.T) {
	units := FormatStreamMessages(makeStreams("Celeste", 10), nil)

	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}
	if units[0].Footer != "" {
		t.Errorf("Footer = %q, want empty for a single unit", units[0].Footer)
	}
	if len(units[0].Fields) != 10 {
		t.Errorf("Fields = %d, want 10", len(units[0].Fields))
	}
}

func TestFormatStreamMessages_Pagination(t *testing.T) {
	units := FormatStreamMessages(makeStreams("Celeste", 23), nil)

	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}

	wantFields := []int{10, 10, 3}
	for i, unit := range units {
		if unit.GameName != "Celeste" {
			t.Errorf("units[%d].GameName = %q, want Celeste", i, unit.GameName)
		}
		if len(unit.Fields) != wantFields[i] {
			t.Errorf("units[%d] has %d fields, want %d", i, len(unit.Fields), wantFields[i])
		}
		wantFooter := fmt.Sprintf("Page %d of 3", i+1)
		if unit.Footer != wantFooter {
			t.Errorf("units[%d].Footer = %q, want %q", i, unit.Footer, wantFooter)
		}
	}
}

func TestFormatStreamMessages_GroupsByGameInEncounterOrder(t *testing.T) {
	streams := []models.Stream{
		{StreamId: "s1", UserId: "u1", UserName: "a", GameName: "Celeste"},
		{StreamId: "s2", UserId: "u2", UserName: "b", GameName: "Hades"},
		{StreamId: "s3", UserId: "u3", UserName: "c", GameName: "Celeste"},
	}

	units := FormatStreamMessages(streams, nil)

	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[0].GameName != "Celeste" || units[1].GameName != "Hades" {
		t.Errorf("game order = [%s, %s], want [Celeste, Hades]", units[0].GameName, units[1].GameName)
	}
	if len(units[0].Fields) != 2 {
		t.Errorf("Celeste unit has %d fields, want 2", len(units[0].Fields))
	}
}

func TestFormatStreamMessages_FollowerCountInName(t *testing.T) {
	streams := []models.Stream{
		{StreamId: "s1", UserId: "u1", UserName: "alice", GameName: "Celeste"},
		{StreamId: "s2", UserId: "u2", UserName: "bob", GameName: "Celeste"},
	}

	units := FormatStreamMessages(streams, map[string]uint64{"u1": 1234})

	if got := units[0].Fields[0].Name; got != "alice (1234 followers)" {
		t.Errorf("Fields[0].Name = %q, want %q", got, "alice (1234 followers)")
	}
	// unknown count: plain name, no placeholder
	if got := units[0].Fields[1].Name; got != "bob" {
		t.Errorf("Fields[1].Name = %q, want %q", got, "bob")
	}
}

func TestFormatStreamMessages_TruncatesLongTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{"ascii title", strings.Repeat("x", 2000)},
		{"multibyte title", strings.Repeat("é", 600)},
		{"title ending in escapes", strings.Repeat("a_", 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			streams := []models.Stream{
				{
					StreamId:  "s1",
					UserId:    "u1",
					UserName:  "alice",
					UserLogin: "alice",
					GameName:  "Celeste",
					Title:     tt.title,
				},
			}

			units := FormatStreamMessages(streams, nil)

			value := units[0].Fields[0].Value
			if len(value) > maxFieldValueLen {
				t.Errorf("len(Value) = %d, want <= %d", len(value), maxFieldValueLen)
			}
			if !utf8.ValidString(value) {
				t.Error("Value is not valid UTF-8, a rune was split")
			}

			// the cut must land inside the link text so the markdown stays balanced
			if !strings.Contains(value, "...](https://www.twitch.tv/alice)") {
				t.Errorf("Value lost the link syntax: %q", value[len(value)-40:])
			}
			if !strings.HasSuffix(value, "(Viewers: 0)") {
				t.Errorf("Value lost the viewer suffix: %q", value[len(value)-40:])
			}
			if strings.Count(value, "[") != strings.Count(value, "]") {
				t.Errorf("Value has unbalanced brackets: %q", value[:40])
			}
		})
	}
}

func TestFieldValue_ShortTitleUntouched(t *testing.T) {
	stream := models.Stream{
		StreamId:    "s1",
		UserId:      "u1",
		UserName:    "alice",
		UserLogin:   "alice",
		Title:       "short run",
		ViewerCount: 3,
	}

	want := "[short run](https://www.twitch.tv/alice) (Viewers: 3)"
	if got := fieldValue(stream); got != want {
		t.Errorf("fieldValue() = %q, want %q", got, want)
	}
}

func TestMessageUnitText(t *testing.T) {
	unit := MessageUnit{
		GameName: "Celeste",
		Fields: []StreamField{
			{Name: "alice (10 followers)", Value: "[run](https://www.twitch.tv/alice) (Viewers: 5)"},
		},
		Footer: "Page 1 of 2",
	}

	text := unit.Text()

	if !strings.HasPrefix(text, "*Celeste*\n") {
		t.Errorf("Text() does not start with bold game name: %q", text)
	}
	if !strings.Contains(text, "*alice (10 followers)*") {
		t.Errorf("Text() missing field name: %q", text)
	}
	if !strings.HasSuffix(text, "Page 1 of 2") {
		t.Errorf("Text() does not end with footer: %q", text)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain title", "plain title"},
		{"snake_case_title", "snake\\_case\\_title"},
		{"*bold* [link] `code`", "\\*bold\\* \\[link\\] \\`code\\`"},
	}

	for _, tt := range tests {
		if got := EscapeMarkdown(tt.in); got != tt.want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
