// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// UNICODE: Every helper here counts runes or display cells, never bytes,
// so a multi-byte character is never split in half.

// PrefixRunes returns the first maxRunes characters of s with no ellipsis.
// The input is NFC-normalised first so a base letter and its combining
// accent count as one character and are not separated by the cut.
func PrefixRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	s = norm.NFC.String(s)
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// TruncateRunes truncates s to maxRunes characters, appending "..." when
// anything was cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// SingleLine collapses line breaks so a multi-line title fits one row.
func SingleLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

// PadRight pads s with spaces to the given display width. CJK and emoji
// occupy two cells. Strings already wider than width are cut to fit.
func PadRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.FillRight(s, width)
}
