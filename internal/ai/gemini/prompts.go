package gemini

import "google.golang.org/genai"

// summarySchema constrains the model output to the summary JSON object
// understood by ai.ParseSummaryJSON.
var summarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"language": {Type: genai.TypeString, Description: "Two letter ISO 639-1 code of the transcript language."},
		"topics": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Short topics in the order they were mentioned, written in the transcript language.",
		},
		"hashtags": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Up to three hashtags describing the message.",
		},
		"reaction_emoji": {Type: genai.TypeString, Description: "One emoji that fits the message."},
	},
	Required: []string{"language", "topics", "hashtags", "reaction_emoji"},
}
