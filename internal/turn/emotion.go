package turn

import (
	"regexp"
	"strings"
)

// emotionRules maps response content to an emotion tag. The table is ordered
// and the first matching rule wins; reordering changes observable behavior.
var emotionRules = []struct {
	pattern *regexp.Regexp
	emotion string
}{
	// Negative
	{regexp.MustCompile(`sorry|apolog|unfortunately|unable to|cannot|can't|failed|failure|error|fail`), "sad"},
	{regexp.MustCompile(`don't know|do not know|not sure|uncertain|unclear|unfamiliar`), "confused"},
	{regexp.MustCompile(`danger|warning|careful|caution|must not|forbidden`), "shocked"},
	{regexp.MustCompile(`haha|lmao|lol|hilarious|so funny`), "laughing"},
	// Positive
	{regexp.MustCompile(`\bdone\b|completed|finished|installed|configured|created|modified|deleted|updated|all set|succeeded|success`), "happy"},
	{regexp.MustCompile(`great|awesome|excellent|amazing|well done|congrat|fantastic|nice`), "happy"},
	{regexp.MustCompile(`\bokay\b|\bok\b|got it|understood|sure thing|no problem|of course|will do`), "winking"},
	{regexp.MustCompile(`\bhello\b|\bhi\b|\bhey\b|good morning|good evening|good afternoon`), "happy"},
	// Content-specific
	{regexp.MustCompile(`sunny|sunshine|clear skies`), "happy"},
	{regexp.MustCompile(`rainy|raining|downpour|thunderstorm`), "sad"},
	{regexp.MustCompile(`delicious|tasty|recipe|good food`), "delicious"},
	{regexp.MustCompile(`\blove\b|favorite|adore|so beautiful|❤`), "loving"},
	{regexp.MustCompile(`tired|sleepy|exhausted|take a rest|good night`), "sleepy"},
	{regexp.MustCompile(`\bcool\b|impressive|powerful`), "cool"},
	{regexp.MustCompile(`\bhmm\b|let me think|think about it`), "thinking"},
	{regexp.MustCompile(`\bwow\b|surprised|surprising|unexpected|incredible`), "surprised"},
	{regexp.MustCompile(`awkward|embarrass|\boops\b|\buh oh\b`), "embarrassed"},
	{regexp.MustCompile(`angry|furious|annoying|annoyed|hate`), "angry"},
}

// Classify derives an emotion tag from response text using the keyword rule
// table. Falls back to "neutral" when nothing matches.
func Classify(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range emotionRules {
		if rule.pattern.MatchString(lower) {
			return rule.emotion
		}
	}
	return "neutral"
}

// eventEmotions are the fixed tags carried by streaming progress frames.
var eventEmotions = map[EventType]string{
	EventThinking:   "thinking",
	EventToolCall:   "gear",
	EventToolResult: "cool",
}

// Enrich attaches the emotion tag to an event: progress frames get their
// fixed tag, final frames get a tag derived from their content.
func Enrich(e Event) Event {
	if tag, ok := eventEmotions[e.Type]; ok {
		e.Emotion = tag
	} else if e.Type == EventFinal {
		e.Emotion = Classify(e.Content)
	}
	return e
}
