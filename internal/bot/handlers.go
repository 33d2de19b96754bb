package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fsubmedia/internal/gate"
	"fsubmedia/internal/link"
	"fsubmedia/internal/registry"

	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// '#' separates the callback name from its payload in callback data.
const callbackSep = "#"

const (
	textGreeting = "👋 Hi! Send me a photo, video or document and I'll give you " +
		"a shareable link. Anyone who opens it gets the file — after joining " +
		"the required channels."
	textHelp = "📖 How it works:\n" +
		"• Send a photo, video or document — you get back a link.\n" +
		"• The link is also posted to the public channel.\n" +
		"• Whoever opens the link must join the required channels first.\n\n" +
		"Commands: /start, /help, /stats"
	textNotMedia     = "Send me a photo, video or document to get a link."
	textLinkInvalid  = "😕 This link is invalid or has expired."
	textStorageDown  = "⚠️ Something went wrong on our side. Please try again later."
	textDeliverFail  = "❌ Could not send the file. Please try again later."
	textUnknownCmd   = "Unknown command. Try /help"
	textStillMissing = "You haven't joined all the required channels yet."
	textJoinFirst    = "To continue you need to join the channels below, then press the check button."
	textJoined       = "✅ Subscription confirmed."
	textJoinedUpload = "✅ Subscription confirmed. Now send your file again to get a link."
)

// --- Commands ---

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		arg := strings.TrimSpace(msg.CommandArguments())
		if arg == "" {
			b.sender.Text(chatID, textGreeting)
			return
		}
		b.handleDeepLink(ctx, chatID, msg.From.ID, arg)
	case "help":
		b.sender.Text(chatID, textHelp)
	case "stats":
		b.handleStats(ctx, chatID)
	default:
		b.sender.Text(chatID, textUnknownCmd)
	}
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	n, err := b.registry.Count(ctx)
	if err != nil {
		b.log.Error("registry count failed", zap.Error(err))
		b.sender.Text(chatID, textStorageDown)
		return
	}
	b.sender.Text(chatID, fmt.Sprintf("📦 Stored files: %d", n))
}

// --- Deep-link activation ---

// handleDeepLink resolves a /start payload: code lookup, then the
// membership gate, then delivery.
func (b *Bot) handleDeepLink(ctx context.Context, chatID, userID int64, arg string) {
	code, err := link.Decode(arg)
	if err != nil {
		// Junk payload is treated as a plain /start.
		b.sender.Text(chatID, textGreeting)
		return
	}

	rec, err := b.registry.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			b.log.Info("unknown code requested", zap.String("code", code), zap.Int64("user_id", userID))
			b.sender.Text(chatID, textLinkInvalid)
			return
		}
		b.log.Error("registry lookup failed", zap.Error(err), zap.String("code", code))
		b.sender.Text(chatID, textStorageDown)
		return
	}

	res := b.gate.Check(ctx, userID)
	if !res.Allowed {
		b.sendGatePrompt(chatID, code, res.Unmet)
		return
	}

	b.deliver(chatID, rec)
}

// --- Media intake ---

// handleMedia stores inbound private media and hands back a deep-link.
// The uploader has to pass the gate too.
func (b *Bot) handleMedia(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	contentRef, kind, ok := extractMedia(msg)
	if !ok {
		b.sender.Text(chatID, textNotMedia)
		return
	}

	res := b.gate.Check(ctx, msg.From.ID)
	if !res.Allowed {
		b.sendGatePrompt(chatID, "", res.Unmet)
		return
	}

	code, err := b.registry.Store(ctx, contentRef, kind, msg.Caption, msg.From.ID)
	if err != nil {
		b.log.Error("failed to store media record", zap.Error(err), zap.Int64("uploader_id", msg.From.ID))
		b.sender.Text(chatID, textStorageDown)
		return
	}

	deepLink := link.DeepLink(b.username, code)

	// A failed announcement does not invalidate the code: the record
	// is already durable, only the uploader gets told.
	reply := "🔗 Share this link:\n" + deepLink
	if err := b.publish(deepLink); err != nil {
		b.log.Error("channel publish failed", zap.Error(err), zap.String("code", code))
		reply += "\n\n⚠️ Could not post the link to the channel, but the link itself works."
	}
	b.sender.Text(chatID, reply)
}

// extractMedia pulls the stable file_id and kind out of a message.
func extractMedia(msg *tgbotapi.Message) (string, registry.Kind, bool) {
	switch {
	case len(msg.Photo) > 0:
		// Last entry is the largest size.
		return msg.Photo[len(msg.Photo)-1].FileID, registry.KindPhoto, true
	case msg.Video != nil:
		return msg.Video.FileID, registry.KindVideo, true
	case msg.Document != nil:
		return msg.Document.FileID, registry.KindDocument, true
	}
	return "", "", false
}

// publish announces the deep-link in the configured public channel.
func (b *Bot) publish(text string) error {
	var msg tgbotapi.MessageConfig
	if b.cfg.PublishChannel != "" {
		msg = tgbotapi.NewMessageToChannel(b.cfg.PublishChannel, text)
	} else {
		msg = tgbotapi.NewMessage(b.cfg.PublishChannelID, text)
	}
	return b.sender.Send(msg)
}

// --- Gate prompt and retry ---

// sendGatePrompt lists every unmet requirement with join buttons and a
// retry button. code may be empty when no delivery is pending.
func (b *Bot) sendGatePrompt(chatID int64, code string, unmet []gate.Requirement) {
	var sb strings.Builder
	sb.WriteString(textJoinFirst)
	sb.WriteString("\n")
	for _, req := range unmet {
		sb.WriteString("\n• ")
		sb.WriteString(req.Label)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, req := range unmet {
		if req.JoinURL == "" {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("✅ Join "+req.Label, req.JoinURL),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 I joined — check again", "retry"+callbackSep+code),
	))

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if err := b.sender.Send(msg); err != nil {
		b.log.Warn("failed to send gate prompt", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// handleCallback re-runs the gate when the user claims to have joined.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	name, payload, _ := strings.Cut(cq.Data, callbackSep)
	if name != "retry" || cq.Message == nil {
		b.sender.Callback(cq.ID, "Unknown action", false)
		return
	}

	res := b.gate.Check(ctx, cq.From.ID)
	if !res.Allowed {
		b.sender.Callback(cq.ID, textStillMissing, true)
		return
	}

	// No payload means the prompt came from the upload path: there is
	// nothing to deliver, the user has to resend their media.
	confirm := textJoined
	if payload == "" {
		confirm = textJoinedUpload
	}

	chatID := cq.Message.Chat.ID
	if err := b.sender.Send(tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, confirm)); err != nil {
		b.log.Warn("failed to edit gate prompt", zap.Error(err), zap.Int64("chat_id", chatID))
	}
	b.sender.Callback(cq.ID, "", false)

	if payload == "" {
		return
	}

	rec, err := b.registry.Lookup(ctx, payload)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			b.sender.Text(chatID, textLinkInvalid)
			return
		}
		b.log.Error("registry lookup failed", zap.Error(err), zap.String("code", payload))
		b.sender.Text(chatID, textStorageDown)
		return
	}
	b.deliver(chatID, rec)
}

// --- Delivery ---

// deliver resends the stored media by file_id, picking the send
// operation from the record's kind.
func (b *Bot) deliver(chatID int64, rec *registry.MediaRecord) {
	file := tgbotapi.FileID(rec.ContentRef)

	var c tgbotapi.Chattable
	switch rec.Kind {
	case registry.KindPhoto:
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = rec.Caption
		c = photo
	case registry.KindVideo:
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = rec.Caption
		c = video
	default:
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = rec.Caption
		c = doc
	}

	if err := b.sender.Send(c); err != nil {
		b.log.Error("failed to deliver media",
			zap.Error(err),
			zap.String("code", rec.Code),
			zap.String("kind", string(rec.Kind)),
		)
		b.sender.Text(chatID, textDeliverFail)
		return
	}

	b.log.Info("media delivered",
		zap.String("code", rec.Code),
		zap.String("kind", string(rec.Kind)),
		zap.Int64("chat_id", chatID),
	)
}
