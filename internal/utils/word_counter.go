package utils

import "strings"

// CountWords counts words in mixed English/Chinese text. CJK unified
// ideographs count one per character; the remaining text is split on
// whitespace.
func CountWords(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	cjk := 0
	var rest strings.Builder
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			cjk++
			continue
		}
		rest.WriteRune(r)
	}

	return cjk + len(strings.Fields(rest.String()))
}
