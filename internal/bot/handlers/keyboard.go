package handlers

import (
	"slices"
	"strconv"

	"github.com/go-telegram/bot/models"

	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/telegram/callback"
)

const (
	keyboardRows    = 4
	keyboardColumns = 3
	itemsPerPage    = keyboardRows * keyboardColumns
)

// commonLanguageTags are listed first on the language keyboard.
var commonLanguageTags = []string{"en", "ru", "pt", "zh", "es", "fr"}

// keyboardLanguages orders languages for the keyboard: common ones first,
// the rest in their given order, without the current language.
func keyboardLanguages(langs []database.Language, current *database.Language) []database.Language {
	byTag := make(map[string]database.Language, len(langs))
	for _, l := range langs {
		byTag[l.IETFTag] = l
	}

	out := make([]database.Language, 0, len(langs))
	for _, tag := range commonLanguageTags {
		if l, ok := byTag[tag]; ok {
			out = append(out, l)
		}
	}
	for _, l := range langs {
		if !slices.Contains(commonLanguageTags, l.IETFTag) {
			out = append(out, l)
		}
	}
	if current != nil {
		out = slices.DeleteFunc(out, func(l database.Language) bool { return l.ID == current.ID })
	}
	return out
}

// pageStarts returns the index of the first language on each page. The first
// and last pages give one slot to a navigation button, middle pages two.
func pageStarts(n int) []int {
	if n <= itemsPerPage {
		return []int{0}
	}
	starts := []int{0}
	pos := itemsPerPage - 1
	for n-pos > itemsPerPage-1 {
		starts = append(starts, pos)
		pos += itemsPerPage - 2
	}
	return append(starts, pos)
}

// languageKeyboard builds the given page (1-based) of the language
// selection keyboard. Out of range pages are clamped.
func languageKeyboard(langs []database.Language, current *database.Language, page int) *models.InlineKeyboardMarkup {
	sorted := keyboardLanguages(langs, current)
	starts := pageStarts(len(sorted))
	page = max(1, min(page, len(starts)))

	start := starts[page-1]
	end := len(sorted)
	if page < len(starts) {
		end = starts[page]
	}

	buttons := make([]models.InlineKeyboardButton, 0, itemsPerPage)
	if page > 1 {
		buttons = append(buttons, pageButton("<< Previous", page-1))
	}
	for _, l := range sorted[start:end] {
		buttons = append(buttons, models.InlineKeyboardButton{
			Text:         l.FlagEmoji() + " " + l.Name,
			CallbackData: callback.MustEncode(langCallback, "set", l.IETFTag),
		})
	}
	if page < len(starts) {
		buttons = append(buttons, pageButton("Next >>", page+1))
	}

	var rows [][]models.InlineKeyboardButton
	for chunk := range slices.Chunk(buttons, keyboardColumns) {
		rows = append(rows, chunk)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func pageButton(text string, page int) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callback.MustEncode(langCallback, "page", strconv.Itoa(page)),
	}
}

// removeKeyboard is an empty inline keyboard.
func removeKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}}
}
