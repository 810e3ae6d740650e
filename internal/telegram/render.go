package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"carelens/internal/analysis"
	apperrors "carelens/internal/errors"
)

func makeKindKeyboard() tgbotapi.InlineKeyboardMarkup {
	doc := tgbotapi.NewInlineKeyboardButtonData("📄 Care document", "kind_document")
	env := tgbotapi.NewInlineKeyboardButtonData("🛏 Room / environment", "kind_environment")
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(doc, env))
}

func kindFromString(s string) (analysis.Kind, error) {
	switch analysis.Kind(strings.TrimSpace(s)) {
	case analysis.KindDocument:
		return analysis.KindDocument, nil
	case analysis.KindEnvironment:
		return analysis.KindEnvironment, nil
	}
	return "", fmt.Errorf("unknown kind %q: use document or environment", s)
}

func renderResult(res analysis.Result) string {
	var b strings.Builder
	b.WriteString("🩺 *Analysis*\n")

	if s := strings.TrimSpace(res.DetectedTextSummary); s != "" {
		b.WriteString("\n*Detected*\n")
		b.WriteString(esc(s))
		b.WriteString("\n")
	}
	if len(res.PossibleCauses) > 0 {
		b.WriteString("\n*Possible causes*\n")
		for _, c := range res.PossibleCauses {
			b.WriteString("• ")
			b.WriteString(esc(c))
			b.WriteString("\n")
		}
	}
	if len(res.PreventionStrategies) > 0 {
		b.WriteString("\n*Prevention*\n")
		for _, m := range res.PreventionStrategies {
			b.WriteString(fmt.Sprintf("• %s: %s (%s)\n", esc(m.Measure), esc(m.Rationale), m.Category))
		}
	}
	if s := strings.TrimSpace(res.HandoverNote); s != "" {
		b.WriteString("\n*Handover note*\n")
		b.WriteString(esc(s))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// guidance picks the wording for a failed analysis by error category.
// Every branch ends with the same two ways out.
func guidance(err error) string {
	var b strings.Builder
	switch apperrors.KindOf(err) {
	case apperrors.KindRateLimited:
		b.WriteString("⏳ The analysis service is rate limited right now. Wait a minute before retrying.")
	case apperrors.KindServerMisconfigured:
		b.WriteString("🔧 The proxy has no model credential. Set GEMINI_API_KEY where carelens-proxy runs.")
	case apperrors.KindEndpointMissing:
		b.WriteString("🔌 No analysis route answered. Check that carelens-proxy is running and its URL is configured.")
	case apperrors.KindNetworkUnreachable:
		b.WriteString("📡 Could not reach the proxy. Check the connection and the configured base URL.")
	case apperrors.KindBadRequest:
		b.WriteString("🖼 The photos could not be used: " + apperrors.MessageOf(err))
	default:
		b.WriteString("❌ Analysis failed: " + apperrors.MessageOf(err))
	}
	b.WriteString("\nSend /retry to analyze the same photos again, or /reset to start over.")
	return b.String()
}

// esc keeps user-visible text from breaking Telegram Markdown.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
