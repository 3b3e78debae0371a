package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "cut", in: "abcdef", n: 3, want: "abc"},
		{name: "entity kept whole", in: "a &amp; b", n: 5, want: "a "},
		{name: "after entity", in: "a &amp; b", n: 8, want: "a &amp; "},
		{name: "runes", in: "äöüß", n: 2, want: "äö"},
		{name: "zero", in: "abc", n: 0, want: ""},
		{name: "astral kept whole", in: "😀😀", n: 3, want: "😀"},
		{name: "astral fits", in: "😀😀", n: 4, want: "😀😀"},
		{name: "astral after ascii", in: "a😀", n: 2, want: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, truncateHTML(tt.in, tt.n))
		})
	}
}

func TestErrorReportFitsMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		notWant string
	}{
		{name: "markup", text: strings.Repeat("<x>", 3000), notWant: "<x>"},
		{name: "astral", text: strings.Repeat("😀", 3000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			report := errorReport(textUpdate(testUserID, tt.text), errors.New("boom & bust"))

			assert.LessOrEqual(t, utf16Len(report), maxMessageLen)
			assert.True(t, utf8.ValidString(report))
			assert.True(t, strings.HasPrefix(report, "⚠️ An error occurred while handling update 1\n<pre>"))
			assert.True(t, strings.HasSuffix(report, "</pre>"))
			assert.Contains(t, report, "boom &amp; bust")
			if tt.notWant != "" {
				assert.NotContains(t, report, tt.notWant)
			}
		})
	}
}

func TestUTF16Len(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{in: "", want: 0},
		{in: "abc", want: 3},
		{in: "äö", want: 2},
		{in: "😀", want: 2},
		{in: "⚠️", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, utf16Len(tt.in))
		})
	}
}

func TestRecoverReportsPanic(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	h := Recover(f.deps)(func(context.Context, *bot.Bot, *models.Update) {
		panic("kaboom")
	})
	require.NotPanics(t, func() {
		h(context.Background(), f.bot, textUpdate(testUserID, "hi"))
	})

	assert.Equal(t, f.deps.Config.Messages.ErrorGeneralMsg, f.lastText(t))

	queued := f.adminMessages(t)
	require.Len(t, queued, 1)
	assert.Contains(t, queued[0].Text, "panic: kaboom")
	assert.Equal(t, "HTML", queued[0].ParseMode)
}

func TestReportErrorAnswersCallback(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	reportError(context.Background(), f.deps, f.bot, callbackUpdate(testUserID, "x"), errors.New("failed"))

	_, ok := f.srv.Last("answerCallbackQuery")
	assert.True(t, ok)
	assert.Equal(t, f.deps.Config.Messages.ErrorGeneralMsg, f.lastText(t))
}

func TestAdminOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	called := 0
	h := AdminOnly(f.deps)(func(context.Context, *bot.Bot, *models.Update) { called++ })

	h(context.Background(), f.bot, textUpdate(testUserID, "/stats"))
	assert.Equal(t, 0, called)
	assert.Equal(t, "Not authorized.", f.lastText(t))

	h(context.Background(), f.bot, textUpdate(testAdminID, "/stats"))
	assert.Equal(t, 1, called)

	h(context.Background(), f.bot, callbackUpdate(testUserID, "x"))
	assert.Equal(t, 1, called)
	call, ok := f.srv.Last("answerCallbackQuery")
	require.True(t, ok)
	assert.Equal(t, "Not authorized.", call.Fields["text"])
}
