package handlers

import (
	"sort"
	"strings"
	"unicode/utf16"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Callback data prefixes routed to the callback handlers.
const (
	langCallback       = "lang"
	transcriptCallback = "tr"
	buyCallback        = "buy"
)

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	// MatchFunc replaces HandlerType, Pattern and MatchType when set.
	MatchFunc tgbot.MatchFunc
	// Description is shown in the command menu. Commands without one are hidden.
	Description string
}

// RegisterAllCommands initializes and returns a map of all available bot commands.
// It configures each command with appropriate handlers and middleware.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		MatchFunc:   isCommand(deps, "start"),
		Handler:     NewStartHandler(deps),
		Description: "Say hi to the bot",
	}
	handlers["/lang"] = RegisteredHandler{
		MatchFunc:   isCommand(deps, "lang"),
		Handler:     NewLangHandler(deps),
		Description: "Set default language for summaries (default is English)",
	}
	handlers["/premium"] = RegisteredHandler{
		MatchFunc:   isCommand(deps, "premium"),
		Handler:     NewPremiumHandler(deps),
		Description: "Show your subscription and buy premium",
	}

	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	handlers["/stats"] = RegisteredHandler{
		MatchFunc:  isCommand(deps, "stats"),
		Handler:    NewStatsHandler(deps),
		Middleware: adminMiddleware,
	}
	handlers["/top"] = RegisteredHandler{
		MatchFunc:  isCommand(deps, "top"),
		Handler:    NewTopHandler(deps),
		Middleware: adminMiddleware,
	}
	handlers["/dataset"] = RegisteredHandler{
		MatchFunc:  isCommand(deps, "dataset"),
		Handler:    NewDatasetHandler(deps),
		Middleware: adminMiddleware,
	}

	handlers["audio"] = RegisteredHandler{
		MatchFunc: IsAudioMessage,
		Handler:   NewAudioHandler(deps),
	}
	handlers["pre_checkout"] = RegisteredHandler{
		MatchFunc: isPreCheckoutQuery,
		Handler:   NewPreCheckoutHandler(deps),
	}
	handlers["successful_payment"] = RegisteredHandler{
		MatchFunc: isSuccessfulPayment,
		Handler:   NewSuccessfulPaymentHandler(deps),
	}

	handlers["callback_lang"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     langCallback + ":",
		Handler:     NewLangCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}
	handlers["callback_transcript"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     transcriptCallback + ":",
		Handler:     NewTranscriptHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}
	handlers["callback_buy"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     buyCallback + ":",
		Handler:     NewBuyHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}

	// /help lists the menu, so it is built last and includes itself.
	help := RegisteredHandler{
		MatchFunc:   isCommand(deps, "help"),
		Description: "Show help message",
	}
	handlers["/help"] = help
	help.Handler = NewHelpHandler(deps, Commands(handlers))
	handlers["/help"] = help

	return handlers
}

// Commands returns the menu entries of the handlers that carry a description,
// sorted by command.
func Commands(registeredHandlers map[string]RegisteredHandler) []models.BotCommand {
	var commands []models.BotCommand
	for name, h := range registeredHandlers {
		if h.Description == "" || !strings.HasPrefix(name, "/") {
			continue
		}
		commands = append(commands, models.BotCommand{
			Command:     strings.TrimPrefix(name, "/"),
			Description: h.Description,
		})
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Command < commands[j].Command })
	return commands
}

func isPreCheckoutQuery(update *models.Update) bool {
	return update.PreCheckoutQuery != nil
}

func isSuccessfulPayment(update *models.Update) bool {
	return update.Message != nil && update.Message.SuccessfulPayment != nil
}

// isCommand matches messages starting with /name or /name@<bot username>.
// Commands addressed to other bots do not match.
func isCommand(deps HandlerDeps, name string) tgbot.MatchFunc {
	return func(update *models.Update) bool {
		cmd, ok := messageCommand(update.Message, deps.Config.Telegram.BotInfo.Username)
		return ok && cmd == name
	}
}

// messageCommand returns the lower-cased command of a bot_command entity at
// the start of msg, without the slash and the bot mention.
func messageCommand(msg *models.Message, botUsername string) (string, bool) {
	if msg == nil {
		return "", false
	}
	for _, e := range msg.Entities {
		if e.Type != models.MessageEntityTypeBotCommand || e.Offset != 0 {
			continue
		}
		// Entity bounds are in UTF-16 code units.
		units := utf16.Encode([]rune(msg.Text))
		if e.Length < 2 || e.Length > len(units) {
			return "", false
		}
		cmd, ok := strings.CutPrefix(string(utf16.Decode(units[:e.Length])), "/")
		if !ok {
			return "", false
		}
		if name, target, found := strings.Cut(cmd, "@"); found {
			if botUsername == "" || !strings.EqualFold(target, botUsername) {
				return "", false
			}
			cmd = name
		}
		return strings.ToLower(cmd), cmd != ""
	}
	return "", false
}
