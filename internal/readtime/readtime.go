// Package readtime estimates how long a post takes to read.
package readtime

import (
	"strconv"
	"strings"

	stripmd "github.com/writeas/go-strip-markdown/v2"
)

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 200

// Words counts the words of body after Markdown syntax is removed.
func Words(body string) int {
	if strings.TrimSpace(body) == "" {
		return 0
	}
	return len(strings.Fields(stripmd.Strip(body)))
}

// Minutes returns the rounded-up reading time in minutes. Non-empty text
// takes at least one minute; empty text takes zero.
func Minutes(body string) int {
	words := Words(body)
	if words == 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// Label formats minutes for display, e.g. "3 min read".
func Label(minutes int) string {
	return strconv.Itoa(minutes) + " min read"
}
