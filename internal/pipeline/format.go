package pipeline

import (
	"fmt"
	"html"
	"strings"

	"github.com/summaree/summareebot/internal/database"
)

// languageHeaders are the two header lines shown when the summary language
// differs from the audio language, keyed by the chat language.
var languageHeaders = map[string][2]string{
	"en": {"Voice message/audio language: %s", "Summary language: %s"},
	"de": {"Sprachnachricht/Audio-Sprache: %s", "Zusammenfassungssprache: %s"},
	"es": {"Lenguaje del mensaje de voz/audio: %s", "Lenguaje del resumen: %s"},
	"ru": {"Язык аудиосообщения/аудио: %s", "Язык резюме: %s"},
}

// FormatSummary renders a summary as an HTML message.
func FormatSummary(res *Result, chatLang *database.Language) string {
	var sb strings.Builder

	if res.Transcript != nil {
		if tags := res.Transcript.HashtagList(); len(tags) > 0 {
			sb.WriteString(html.EscapeString(strings.Join(tags, " ")))
			sb.WriteString("\n\n")
		}
	}

	if in := res.InputLanguage; in != nil && chatLang != nil && in.ID != chatLang.ID {
		header, ok := languageHeaders[chatLang.IETFTag]
		if !ok {
			header = languageHeaders[database.DefaultLanguageTag]
		}
		fmt.Fprintf(&sb, header[0]+"\n", in.FlagEmoji())
		fmt.Fprintf(&sb, header[1]+"\n\n", chatLang.FlagEmoji())
	}

	if res.Summary != nil {
		for i, topic := range res.Summary.TopicTexts() {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString("- ")
			sb.WriteString(html.EscapeString(topic))
		}
	}
	return sb.String()
}
