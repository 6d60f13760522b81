package departures

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockPattern       = regexp.MustCompile(`(?i)^(\d{1,2})[:.](\d{2})(?:\s*uhr)?$`)
	countdownPattern   = regexp.MustCompile(`(?i)^(?:in\s+)?(\d{1,3})\s*(?:min\.?|minuten|')$`)
	trailingDelayRegex = regexp.MustCompile(`^(.*?)\s*([+-]\d{1,3})(?:\s*min\.?)?$`)
	delayPattern       = regexp.MustCompile(`(?i)^([+-]?\d{1,3})\s*(?:min\.?)?$`)
)

// cleanText trims and collapses internal whitespace, including non-breaking spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// parseClock only understands absolute times of day.
func parseClock(text string) TimeOfDay {
	text = cleanText(text)
	if text == "" {
		return TimeOfDay{Text: Unknown}
	}

	m := clockPattern.FindStringSubmatch(text)
	if m == nil {
		return TimeOfDay{Text: text}
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return TimeOfDay{Text: text}
	}

	return TimeOfDay{Text: fmt.Sprintf("%02d:%02d", hour, minute), Parsed: true}
}

// parseTime also resolves countdowns ("5 min", "sofort") against now, and splits a
// trailing delay ("14:32 +3") off the time cell.
func parseTime(text string, now time.Time) (TimeOfDay, *int) {
	text = cleanText(text)

	if t := parseClock(text); t.Parsed || text == "" {
		return t, nil
	}

	switch strings.ToLower(text) {
	case "sofort", "jetzt", "now":
		return TimeOfDay{Text: now.Format("15:04"), Parsed: true}, nil
	}

	if m := countdownPattern.FindStringSubmatch(text); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return TimeOfDay{Text: now.Add(time.Duration(minutes) * time.Minute).Format("15:04"), Parsed: true}, nil
	}

	if m := trailingDelayRegex.FindStringSubmatch(text); m != nil {
		if t := parseClock(m[1]); t.Parsed {
			delay, _ := strconv.Atoi(m[2])
			return t, &delay
		}
	}

	return TimeOfDay{Text: text}, nil
}

func parseDelay(text string) (*int, bool) {
	text = cleanText(text)
	if text == "" {
		return nil, true
	}

	switch strings.ToLower(text) {
	case "pünktlich", "puenktlich", "on time":
		zero := 0
		return &zero, true
	}

	m := delayPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}

	delay, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}
	return &delay, true
}
