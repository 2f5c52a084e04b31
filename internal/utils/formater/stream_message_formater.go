package formater

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"twitch_stream_monitor/internal/models"
)

const (
	TwitchWWWSchemeHost = "https://www.twitch.tv"

	// maxStreamsPerUnit bounds one rendered notification.
	maxStreamsPerUnit = 10
	// maxFieldValueLen is the hard cap on a rendered stream line; longer
	// values are cut to truncatedValueLen plus an ellipsis marker.
	maxFieldValueLen  = 1024
	truncatedValueLen = 1020
)

type StreamField struct {
	Name  string
	Value string
}

// MessageUnit is one bounded-size rendered notification: at most ten streams
// of a single game, with a page footer when the game spans several units.
type MessageUnit struct {
	GameName string
	Fields   []StreamField
	Footer   string
}

// FormatStreamMessages groups streams by game name in encounter order and
// splits each group into message units. Known follower counts are shown next
// to the display name; the map comes from the filtering pass so nothing is
// re-fetched here.
func FormatStreamMessages(streams []models.Stream, followerCounts map[string]uint64) []MessageUnit {
	var gameOrder []string
	streamsByGame := make(map[string][]models.Stream)

	for _, stream := range streams {
		gameName := stream.GameName
		if gameName == "" {
			gameName = "Unknown"
		}

		if _, ok := streamsByGame[gameName]; !ok {
			gameOrder = append(gameOrder, gameName)
		}
		streamsByGame[gameName] = append(streamsByGame[gameName], stream)
	}

	var units []MessageUnit

	for _, gameName := range gameOrder {
		gameStreams := streamsByGame[gameName]
		totalUnits := (len(gameStreams) + maxStreamsPerUnit - 1) / maxStreamsPerUnit

		for unitIndex := 0; unitIndex < totalUnits; unitIndex++ {
			start := unitIndex * maxStreamsPerUnit
			end := start + maxStreamsPerUnit
			if end > len(gameStreams) {
				end = len(gameStreams)
			}

			unit := MessageUnit{
				GameName: gameName,
			}

			for _, stream := range gameStreams[start:end] {
				unit.Fields = append(unit.Fields, StreamField{
					Name:  fieldName(stream, followerCounts),
					Value: fieldValue(stream),
				})
			}

			if totalUnits > 1 {
				unit.Footer = fmt.Sprintf("Page %d of %d", unitIndex+1, totalUnits)
			}

			units = append(units, unit)
		}
	}

	return units
}

func fieldName(stream models.Stream, followerCounts map[string]uint64) string {
	name := stream.UserName
	if name == "" {
		name = "Unknown"
	}

	if count, ok := followerCounts[stream.UserId]; ok {
		return fmt.Sprintf("%s (%d followers)", name, count)
	}

	return name
}

func fieldValue(stream models.Stream) string {
	login := stream.UserLogin
	if login == "" {
		login = stream.UserName
	}
	link := fmt.Sprintf("%s/%s", TwitchWWWSchemeHost, login)

	title := stream.Title
	if title == "" {
		title = "No title"
	}
	title = EscapeMarkdown(title)

	value := fmt.Sprintf("[%s](%s) (Viewers: %d)", title, link, stream.ViewerCount)
	if len(value) <= maxFieldValueLen {
		return value
	}

	// Over the limit, the cut has to land inside the link text: slicing the
	// assembled value would leave an unbalanced "[" and Telegram rejects the
	// whole message with "can't parse entities".
	overhead := len(value) - len(title)
	budget := truncatedValueLen - overhead
	if budget < 0 {
		budget = 0
	}
	title = truncateTitle(title, budget) + "..."

	return fmt.Sprintf("[%s](%s) (Viewers: %d)", title, link, stream.ViewerCount)
}

// truncateTitle cuts an escaped title to at most max bytes without splitting
// a multi-byte rune or a backslash escape.
func truncateTitle(title string, max int) string {
	if len(title) <= max {
		return title
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}

	return strings.TrimRight(title[:cut], "\\")
}

// Text renders a unit as one Telegram Markdown message.
func (mu MessageUnit) Text() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("*%s*\n", EscapeMarkdown(mu.GameName)))

	for _, field := range mu.Fields {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("*%s*\n", EscapeMarkdown(field.Name)))
		builder.WriteString(field.Value)
		builder.WriteString("\n")
	}

	if mu.Footer != "" {
		builder.WriteString("\n")
		builder.WriteString(mu.Footer)
	}

	return builder.String()
}

// EscapeMarkdown neutralizes the characters Telegram's Markdown parse mode
// treats specially, stream titles regularly contain them.
func EscapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
