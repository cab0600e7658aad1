package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// commandRemainder strips the leading "/cmd" (or "/cmd@BotName") token and
// returns everything after the first space.
func commandRemainder(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// parseDimensions parses a HEIGHTxWIDTH argument like "800x600". Range
// checking is the caller's concern; this only cares about shape.
func parseDimensions(arg string) (height, width int, err error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	parts := strings.Split(arg, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HEIGHTxWIDTH, got %q", arg)
	}
	height, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse height %q: %w", parts[0], err)
	}
	width, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse width %q: %w", parts[1], err)
	}
	return height, width, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
