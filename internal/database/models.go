package database

import (
	"database/sql"
	"strings"
	"time"
)

// Language is a target language supported by the translation provider.
type Language struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	IETFTag   string    `db:"ietf_tag"`
	Code      string    `db:"code"`
	CreatedAt time.Time `db:"created_at"`
}

// DefaultLanguageTag is the language new chats start with.
const DefaultLanguageTag = "en"

// flagRegions maps tags whose flag does not follow from the tag itself.
var flagRegions = map[string]string{
	"ar": "SA", "cs": "CZ", "da": "DK", "el": "GR", "en": "GB", "et": "EE",
	"he": "IL", "ja": "JP", "ko": "KR", "nb": "NO", "sl": "SI", "sv": "SE",
	"uk": "UA", "zh": "CN", "vi": "VN", "hi": "IN",
}

// FlagEmoji returns the regional indicator flag of the language, taken from
// the region of its code (EN-US, PT-BR) when there is one.
func (l Language) FlagEmoji() string {
	region := ""
	if _, r, ok := strings.Cut(l.Code, "-"); ok && len(r) == 2 {
		region = strings.ToUpper(r)
	} else if r, ok := flagRegions[l.IETFTag]; ok {
		region = r
	} else {
		region = strings.ToUpper(l.IETFTag)
	}
	if len(region) != 2 || region[0] < 'A' || region[0] > 'Z' || region[1] < 'A' || region[1] > 'Z' {
		return "🏳️"
	}
	return string([]rune{0x1F1E6 + rune(region[0]-'A'), 0x1F1E6 + rune(region[1]-'A')})
}

// User is a Telegram user that talked to the bot.
type User struct {
	ID           int64     `db:"id"`
	IsBot        bool      `db:"is_bot"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Username     string    `db:"username"`
	LanguageCode string    `db:"language_code"`
	IsPremium    bool      `db:"is_premium"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// DisplayName returns @username or the full name.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Chat is a Telegram chat with its summary language.
type Chat struct {
	ID         int64     `db:"id"`
	Type       string    `db:"type"`
	Title      string    `db:"title"`
	Username   string    `db:"username"`
	LanguageID int64     `db:"language_id"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Transcript is the speech-to-text result of one audio file.
type Transcript struct {
	ID              int64         `db:"id"`
	FileID          string        `db:"file_id"`
	FileUniqueID    string        `db:"file_unique_id"`
	SHA256Hash      string        `db:"sha256_hash"`
	Duration        int           `db:"duration"`
	MimeType        string        `db:"mime_type"`
	FileSize        int64         `db:"file_size"`
	Result          string        `db:"result"`
	InputLanguageID sql.NullInt64 `db:"input_language_id"`
	// Hashtags are stored space separated.
	Hashtags      string        `db:"hashtags"`
	ReactionEmoji string        `db:"reaction_emoji"`
	UserID        sql.NullInt64 `db:"user_id"`
	ChatID        sql.NullInt64 `db:"chat_id"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

// HashtagList splits the stored hashtags.
func (t Transcript) HashtagList() []string {
	return strings.Fields(t.Hashtags)
}

// Summary is the topic list of a transcript in one language.
type Summary struct {
	ID               int64         `db:"id"`
	TranscriptID     int64         `db:"transcript_id"`
	LanguageID       int64         `db:"language_id"`
	Model            string        `db:"model"`
	RequestID        string        `db:"request_id"`
	PromptTokens     int           `db:"prompt_tokens"`
	CompletionTokens int           `db:"completion_tokens"`
	TotalCost        float64       `db:"total_cost"`
	UserID           sql.NullInt64 `db:"user_id"`
	CreatedAt        time.Time     `db:"created_at"`

	Topics []Topic `db:"-"`
}

// TopicTexts returns the topic texts in order.
func (s Summary) TopicTexts() []string {
	texts := make([]string, len(s.Topics))
	for i, t := range s.Topics {
		texts[i] = t.Text
	}
	return texts
}

// Topic is one bullet point of a summary.
type Topic struct {
	ID        int64  `db:"id"`
	SummaryID int64  `db:"summary_id"`
	Position  int    `db:"position"`
	Text      string `db:"text"`
}

// Product is something a user can buy with Telegram Stars.
type Product struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Price       int    `db:"price"`
	Currency    string `db:"currency"`
	PremiumDays int    `db:"premium_days"`
	Active      bool   `db:"active"`
}

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExtended SubscriptionStatus = "extended"
)

// Subscription grants premium features between StartDate and EndDate.
type Subscription struct {
	ID        int64              `db:"id"`
	UserID    int64              `db:"user_id"`
	StartDate time.Time          `db:"start_date"`
	EndDate   time.Time          `db:"end_date"`
	Status    SubscriptionStatus `db:"status"`
	CreatedAt time.Time          `db:"created_at"`
	UpdatedAt time.Time          `db:"updated_at"`
}

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceCreated  InvoiceStatus = "created"
	InvoicePaid     InvoiceStatus = "paid"
	InvoiceCanceled InvoiceStatus = "canceled"
)

// Invoice tracks one payment attempt.
type Invoice struct {
	ID                      int64         `db:"id"`
	UserID                  int64         `db:"user_id"`
	ProductID               int64         `db:"product_id"`
	Payload                 string        `db:"payload"`
	TotalAmount             int           `db:"total_amount"`
	Currency                string        `db:"currency"`
	Status                  InvoiceStatus `db:"status"`
	TelegramPaymentChargeID string        `db:"telegram_payment_charge_id"`
	PaidAt                  sql.NullTime  `db:"paid_at"`
	CreatedAt               time.Time     `db:"created_at"`
	UpdatedAt               time.Time     `db:"updated_at"`
}

// QueuedMessage is an outbound message delivered by the queue task.
// ChatID 0 addresses the configured admin chat.
type QueuedMessage struct {
	ID        int64        `db:"id"`
	ChatID    int64        `db:"chat_id"`
	Text      string       `db:"text"`
	ParseMode string       `db:"parse_mode"`
	Attempts  int          `db:"attempts"`
	LastError string       `db:"last_error"`
	SentAt    sql.NullTime `db:"sent_at"`
	FailedAt  sql.NullTime `db:"failed_at"`
	CreatedAt time.Time    `db:"created_at"`
}

// AdminChatID is the placeholder chat id for admin notifications.
const AdminChatID int64 = 0

// UsageStats counts activity in a time window.
type UsageStats struct {
	Summaries int     `db:"summaries"`
	Users     int     `db:"users"`
	TotalCost float64 `db:"total_cost"`
}

// UserUsage is a row of the top users table.
type UserUsage struct {
	UserID    int64   `db:"user_id"`
	Username  string  `db:"username"`
	FirstName string  `db:"first_name"`
	Summaries int     `db:"summaries"`
	TotalCost float64 `db:"total_cost"`
}

// DatasetRow pairs a transcript with the topics of its source summary.
type DatasetRow struct {
	TranscriptID int64    `db:"transcript_id" json:"transcript_id"`
	Transcript   string   `db:"transcript" json:"transcript"`
	Language     string   `db:"language" json:"language"`
	SummaryID    int64    `db:"summary_id" json:"-"`
	Topics       []string `db:"-" json:"topics"`
}
