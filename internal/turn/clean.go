package turn

import (
	"regexp"
	"strings"
)

// thinkTagRe matches <think>...</think> reasoning blocks, including multiline.
var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// StripReasoning removes internal reasoning markup from model output.
// Unclosed trailing <think> blocks are dropped as well.
func StripReasoning(s string) string {
	s = thinkTagRe.ReplaceAllString(s, "")
	if idx := strings.LastIndex(s, "<think>"); idx != -1 {
		if !strings.Contains(s[idx:], "</think>") {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

var (
	numberedItemRe = regexp.MustCompile(`\n\d+[.)]\s*`)
	blankRunRe     = regexp.MustCompile(`\n{2,}`)
)

// CleanReply normalizes agent output for speech-friendly delivery: list
// bullets and numbered prefixes are stripped and blank runs collapsed.
func CleanReply(text string) string {
	clean := strings.TrimSpace(text)
	for _, marker := range []string{"-", "*", "•", "·", "—"} {
		clean = strings.ReplaceAll(clean, "\n"+marker+" ", "\n")
		clean = strings.ReplaceAll(clean, "\n"+marker, "\n")
	}
	clean = numberedItemRe.ReplaceAllString(clean, "\n")
	clean = blankRunRe.ReplaceAllString(clean, "\n")
	return strings.TrimSpace(clean)
}
