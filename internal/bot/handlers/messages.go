package handlers

import (
	"strings"

	"github.com/summaree/summareebot/internal/database"
)

var receivedMessages = map[string]string{
	"en": "🎧 Received your voice/audio/video message.\n☕ Transcribing and summarizing...\n⏳ Please wait a moment.",
	"de": "🎧 Sprach-/Audio-/Videonachricht wurde empfangen.\n☕ Transkribieren und zusammenfassen...\n⏳ Bitte warte einen Moment.",
	"es": "🎧 Recibido tu mensaje de voz/audio/video.\n☕ Transcribiendo y resumiendo...\n⏳ Por favor, espera un momento.",
	"ru": "🎧 Получен ваш голосовой/аудиосообщение.\n☕ Транскрибирование и обобщение...\n⏳ Пожалуйста, подождите немного.",
}

var emptyTranscriptionMessages = map[string]string{
	"en": "⚠️ Sorry, I could not transcribe the audio. Please try a different file.",
	"de": "⚠️ Entschuldigung, Audiodatei konnte nicht transkribiert werden. Bitte versuche eine andere Datei.",
	"es": "⚠️ Lo siento, no pude transcribir el audio. Por favor, inténtalo de nuevo con otro archivo.",
	"ru": "⚠️ Извините, я не смог расшифровать аудиозапись. Пожалуйста, попробуйте другой файл.",
}

var fileTooLargeMessages = map[string]string{
	"en": "⚠️ Sorry, this file is too large. I can only process files up to 20 MB.",
	"de": "⚠️ Entschuldigung, diese Datei ist zu groß. Ich kann nur Dateien bis 20 MB verarbeiten.",
	"es": "⚠️ Lo siento, este archivo es demasiado grande. Solo puedo procesar archivos de hasta 20 MB.",
	"ru": "⚠️ Извините, этот файл слишком большой. Я могу обрабатывать только файлы до 20 МБ.",
}

var transcriptButtonLabels = map[string]string{
	"en": "Transcript",
	"de": "Transkript",
	"es": "Transcripción",
	"ru": "Транскрипт",
}

const (
	transcriptWaitMessage = "📥 Received your request and processing it....⏳\n Please wait a moment. ☕"
	invalidStartArgsFmt   = "😵‍💫 Received invalid argument(s) (%s)"
)

// localized picks the text for a language tag, falling back to English.
// Telegram language codes such as "pt-br" are reduced to their base tag.
func localized(texts map[string]string, tag string) string {
	tag, _, _ = strings.Cut(strings.ToLower(tag), "-")
	if text, ok := texts[tag]; ok {
		return text
	}
	return texts[database.DefaultLanguageTag]
}

func languageTag(lang *database.Language) string {
	if lang == nil {
		return database.DefaultLanguageTag
	}
	return lang.IETFTag
}
