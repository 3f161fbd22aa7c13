package telegram

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage cuts text into chunks of at most maxLen bytes, preferring
// newline or space boundaries and never splitting a UTF-8 sequence.
func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// сначала ищем перевод строки, потом пробел во второй половине окна
	window := text[:maxLen]
	if i := strings.LastIndexByte(window, '\n'); i > maxLen/2 {
		return i + 1
	}
	if i := strings.LastIndexByte(window, ' '); i > maxLen/2 {
		return i + 1
	}

	// режем по границе руны
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		return maxLen
	}
	return cut
}
