package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// SummaryInstruction is the system prompt shared by all summarizers.
const SummaryInstruction = `You are an advanced AI system that summarizes spoken messages into concise and precise summaries.
Your answers contain only the summarized information, you never engage in a conversation with the speaker.
Split the content into a short list of topics in the order they were mentioned. Avoid repeating yourself.
Write the topics in the language of the transcript.

Answer with a JSON object of this shape:
{
  "language": "<two letter ISO 639-1 code of the transcript language>",
  "topics": ["<topic>", "..."],
  "hashtags": ["#<hashtag>", "..."],
  "reaction_emoji": "<one emoji that fits the message>"
}
Use at most 3 hashtags.`

// maxHashtags caps the hashtags kept from a response.
const maxHashtags = 3

type summaryJSON struct {
	Language      string   `json:"language"`
	Topics        []string `json:"topics"`
	Hashtags      []string `json:"hashtags"`
	ReactionEmoji string   `json:"reaction_emoji"`
}

// ParseSummaryJSON decodes and normalizes an LLM summary answer.
func ParseSummaryJSON(text string) (*SummaryResult, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var raw summaryJSON
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("invalid summary JSON: %w", err)
	}

	result := &SummaryResult{
		Language:      NormalizeLanguageTag(raw.Language),
		ReactionEmoji: strings.TrimSpace(raw.ReactionEmoji),
	}
	for _, topic := range raw.Topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			result.Topics = append(result.Topics, topic)
		}
	}
	if len(result.Topics) == 0 {
		return nil, fmt.Errorf("summary has no topics: %w", ErrEmptyResponse)
	}
	result.Hashtags = normalizeHashtags(raw.Hashtags)
	return result, nil
}

// NormalizeLanguageTag reduces tags like "en-US" or "EN" to "en".
// Anything that is not a two letter tag yields "".
func NormalizeLanguageTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	if len(tag) != 2 {
		return ""
	}
	for _, r := range tag {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return tag
}

func normalizeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, tag)
		tag = strings.TrimLeft(tag, "#")
		if tag == "" {
			continue
		}
		tag = "#" + tag
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
		if len(out) == maxHashtags {
			break
		}
	}
	return out
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
