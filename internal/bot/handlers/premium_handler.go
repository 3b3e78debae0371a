package handlers

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/metrics"
	"github.com/summaree/summareebot/internal/telegram/callback"
)

// NewPremiumHandler returns a handler for the /premium command.
func NewPremiumHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithSession(deps, premiumHandler{deps}.Handle)
}

// NewBuyHandler returns a handler for the product buttons of /premium.
func NewBuyHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithSession(deps, premiumHandler{deps}.HandleBuy)
}

// NewPreCheckoutHandler returns a handler answering pre-checkout queries.
func NewPreCheckoutHandler(deps HandlerDeps) bot.HandlerFunc {
	return premiumHandler{deps}.HandlePreCheckout
}

// NewSuccessfulPaymentHandler returns a handler for successful payment messages.
func NewSuccessfulPaymentHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithSession(deps, premiumHandler{deps}.HandlePayment)
}

// premiumHandler sells premium subscriptions for Telegram Stars.
type premiumHandler struct {
	deps HandlerDeps
}

func (h premiumHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	if update.Message == nil {
		return nil
	}
	h.deps.Logger.With("handler", "premium").InfoContext(ctx, "Handling /premium command", "chat_id", s.Chat.ID, "user_id", s.User.ID)
	return h.showStatus(ctx, b, s)
}

// showStatus sends the subscription state of the user with one buy button
// per product.
func (h premiumHandler) showStatus(ctx context.Context, b *bot.Bot, s *Session) error {
	sub, err := s.Store.GetActiveSubscription(ctx, s.User.ID, h.deps.now())
	if err != nil {
		return err
	}
	products, err := s.Store.ListProducts(ctx)
	if err != nil {
		return err
	}

	var text string
	if sub != nil {
		text = fmt.Sprintf("⭐ Your premium subscription is active until %s.\n\nYou can extend it:", sub.EndDate.Format(time.DateOnly))
	} else {
		text = "You have no active premium subscription.\n\nWith premium you get summaries in every available language."
		if len(products) > 0 {
			text += "\n\nChoose a plan:"
		}
	}

	params := &bot.SendMessageParams{ChatID: s.Chat.ID, Text: text}
	if len(products) > 0 {
		params.ReplyMarkup = productKeyboard(products)
	}
	s.Reply(func(ctx context.Context) error {
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send premium status: %w", err)
		}
		return nil
	})
	return nil
}

func productKeyboard(products []database.Product) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(products))
	for _, p := range products {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s (%d ⭐)", p.Title, p.Price),
			CallbackData: callback.MustEncode(buyCallback, strconv.FormatInt(p.ID, 10)),
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (h premiumHandler) HandleBuy(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	log := h.deps.Logger.With("handler", "buy")
	cq := update.CallbackQuery
	if cq == nil {
		return nil
	}

	data, err := callback.Decode(cq.Data)
	if err != nil || data.Fn != buyCallback {
		s.invalidButton(b, h.deps, cq)
		return nil
	}
	productID, err := strconv.ParseInt(data.Arg(0), 10, 64)
	if err != nil {
		s.invalidButton(b, h.deps, cq)
		return nil
	}
	product, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil || !product.Active {
		s.invalidButton(b, h.deps, cq)
		return nil
	}

	invoice := &database.Invoice{
		UserID:      s.User.ID,
		ProductID:   product.ID,
		Payload:     uuid.NewString(),
		TotalAmount: product.Price,
		Currency:    product.Currency,
		Status:      database.InvoiceCreated,
	}
	if err := s.Store.CreateInvoice(ctx, invoice); err != nil {
		return err
	}

	s.Reply(func(ctx context.Context) error {
		answerCallback(ctx, b, cq.ID, "")
		_, err := b.SendInvoice(ctx, &bot.SendInvoiceParams{
			ChatID:      s.Chat.ID,
			Title:       product.Title,
			Description: product.Description,
			Payload:     invoice.Payload,
			Currency:    product.Currency,
			Prices:      []models.LabeledPrice{{Label: product.Title, Amount: product.Price}},
		})
		if err != nil {
			return fmt.Errorf("failed to send invoice: %w", err)
		}
		log.InfoContext(ctx, "Sent invoice", "invoice_id", invoice.ID, "product_id", product.ID, "user_id", s.User.ID)
		return nil
	})
	return nil
}

func (h premiumHandler) HandlePreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "pre_checkout")
	q := update.PreCheckoutQuery
	if q == nil {
		return
	}

	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: true}
	if reason, err := h.checkoutProblem(ctx, q); err != nil {
		log.ErrorContext(ctx, "Failed to check invoice", "error", err, "payload", q.InvoicePayload)
		params.OK = false
		params.ErrorMessage = "Sorry, the payment could not be processed. Please try again later."
	} else if reason != "" {
		log.WarnContext(ctx, "Rejecting checkout", "reason", reason, "payload", q.InvoicePayload, "user_id", q.From.ID)
		params.OK = false
		params.ErrorMessage = "Sorry, this invoice is no longer valid. Please use /premium again."
	}

	if _, err := b.AnswerPreCheckoutQuery(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to answer pre-checkout query", "error", err, "query_id", q.ID)
	}
}

// checkoutProblem returns why a checkout must be rejected, or "" when the
// query matches an open invoice of the user.
func (h premiumHandler) checkoutProblem(ctx context.Context, q *models.PreCheckoutQuery) (string, error) {
	inv, err := h.deps.Store.GetInvoiceByPayload(ctx, q.InvoicePayload)
	switch {
	case err != nil:
		return "", err
	case inv == nil:
		return "unknown invoice", nil
	case inv.Status != database.InvoiceCreated:
		return "invoice is " + string(inv.Status), nil
	case inv.UserID != q.From.ID:
		return "invoice belongs to another user", nil
	case inv.TotalAmount != q.TotalAmount || inv.Currency != q.Currency:
		return "amount mismatch", nil
	}
	return "", nil
}

func (h premiumHandler) HandlePayment(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	log := h.deps.Logger.With("handler", "successful_payment")
	p := update.Message.SuccessfulPayment

	inv, err := s.Store.GetInvoiceByPayload(ctx, p.InvoicePayload)
	if err != nil {
		return err
	}
	if inv == nil {
		return fmt.Errorf("payment for unknown invoice payload %q", p.InvoicePayload)
	}
	if inv.Status == database.InvoicePaid {
		log.WarnContext(ctx, "Invoice already paid", "invoice_id", inv.ID)
		return nil
	}
	product, err := s.Store.GetProduct(ctx, inv.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("invoice %d references missing product %d", inv.ID, inv.ProductID)
	}

	now := h.deps.now()
	if err := s.Store.MarkInvoicePaid(ctx, inv.ID, p.TelegramPaymentChargeID, now); err != nil {
		return err
	}
	sub, err := s.Store.ExtendSubscription(ctx, inv.UserID, product.PremiumDays, now)
	if err != nil {
		return err
	}
	metrics.PaymentsTotal.Inc()
	log.InfoContext(ctx, "Payment received", "invoice_id", inv.ID, "user_id", inv.UserID, "until", sub.EndDate)

	admin := fmt.Sprintf("💸 %s bought %s (%d %s)", html.EscapeString(s.User.DisplayName()), html.EscapeString(product.Title), inv.TotalAmount, html.EscapeString(inv.Currency))
	if err := notifyAdmin(ctx, h.deps, s.Store, admin); err != nil {
		return err
	}

	thanks := fmt.Sprintf(h.deps.Config.Messages.PaymentThanksMsg, sub.EndDate.Format(time.DateOnly))
	s.Reply(func(ctx context.Context) error {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: s.Chat.ID, Text: thanks}); err != nil {
			return fmt.Errorf("failed to send payment confirmation: %w", err)
		}
		return nil
	})
	return nil
}

// checkPremium returns errNoActivePremium, after telling the user, when the
// chat language needs a subscription the user does not have.
func checkPremium(ctx context.Context, b *bot.Bot, deps HandlerDeps, s *Session, replyTo int) error {
	if s.Language == nil || deps.Config.Premium.IsFreeLanguage(s.Language.IETFTag) {
		return nil
	}
	sub, err := s.Store.GetActiveSubscription(ctx, s.User.ID, deps.now())
	if err != nil {
		return err
	}
	if sub != nil {
		return nil
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          s.Chat.ID,
		Text:            deps.Config.Messages.PremiumRequiredMsg,
		ReplyParameters: &models.ReplyParameters{MessageID: replyTo},
	})
	if err != nil {
		return fmt.Errorf("failed to send premium notice: %w", err)
	}
	return errNoActivePremium
}
