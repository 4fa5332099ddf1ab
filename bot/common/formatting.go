package common

import (
	"fmt"
	"strings"
	"time"
)

// FormatNumber formats an integer with thousand separators
func FormatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)

	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}

	// Add commas for thousands
	digits := len(str)
	if digits <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range str {
		if i > 0 && (digits-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// CodeBlock wraps text in a Discord code block
func CodeBlock(text string) string {
	return "```\n" + text + "\n```"
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}
