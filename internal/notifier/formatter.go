package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"PickSentinel/internal/model"
	"PickSentinel/internal/recorder"
	"PickSentinel/internal/watchlist"
)

func labelIcon(rec string) string {
	switch rec {
	case model.LabelStrongBuy:
		return "🟢🟢"
	case model.LabelBuy, model.LabelBuyCall:
		return "🟢"
	case model.LabelStrongSell:
		return "🔴🔴"
	case model.LabelSell, model.LabelBuyPut:
		return "🔴"
	}
	return "⚪"
}

func displayLabel(rec string) string {
	if rec == "" {
		return "Neutral"
	}
	return rec
}

// modeTitle capitalizes the first rune of mode and escapes it for HTML
// parse mode; modes can come straight from a chat command.
func modeTitle(mode string) string {
	if mode == "" {
		return "Default"
	}
	r, size := utf8.DecodeRuneInString(mode)
	return html.EscapeString(string(unicode.ToUpper(r)) + mode[size:])
}

func formatScore(s model.Score) string {
	if !s.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", s.Value)
}

// FormatAlert formats a recommendation change into a Telegram message.
func FormatAlert(ch watchlist.Change) string {
	var b strings.Builder
	cp := ch.Pick

	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s\n\n", labelIcon(ch.Current), html.EscapeString(ch.Symbol), modeTitle(ch.Mode)))
	b.WriteString(fmt.Sprintf("Recommendation: <b>%s</b> (was %s)\n", displayLabel(ch.Current), displayLabel(ch.Previous)))
	b.WriteString(fmt.Sprintf("Blend score: %s", formatScore(cp.Pick.BlendScore)))
	if cp.Direction != nil {
		b.WriteString(fmt.Sprintf(" (norm %+.2f)", cp.Direction.ScoreNorm))
	}
	b.WriteString("\n")
	if cp.Pick.Price > 0 {
		b.WriteString(fmt.Sprintf("Price: %.2f\n", cp.Pick.Price))
	}
	if cp.IsOption && cp.OptionType != "" {
		b.WriteString(fmt.Sprintf("Option: %s\n", cp.OptionType))
	}
	if !ch.At.IsZero() {
		b.WriteString(fmt.Sprintf("\n%s", ch.At.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatPickList formats the current picks of one mode, signals first,
// strongest score first.
func FormatPickList(mode string, picks []model.ClassifiedPick) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>%s picks</b> (%d)\n\n", modeTitle(mode), len(picks)))
	if len(picks) == 0 {
		b.WriteString("No picks yet.")
		return b.String()
	}

	sorted := make([]model.ClassifiedPick, len(picks))
	copy(sorted, picks)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].HasSignal(), sorted[j].HasSignal()
		if si != sj {
			return si
		}
		return sorted[i].Pick.BlendScore.Value > sorted[j].Pick.BlendScore.Value
	})

	for _, cp := range sorted {
		b.WriteString(fmt.Sprintf("%s %s: %s (%s)",
			labelIcon(cp.Recommendation), html.EscapeString(cp.Pick.Symbol),
			displayLabel(cp.Recommendation), formatScore(cp.Pick.BlendScore)))
		if !cp.Pick.UpdatedAt.IsZero() {
			b.WriteString(" · " + humanize.Time(cp.Pick.UpdatedAt))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatThresholds formats the score cutoffs of a mode.
func FormatThresholds(mode string, t model.Thresholds) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📏 <b>%s thresholds</b>\n\n", modeTitle(mode)))
	b.WriteString(fmt.Sprintf("Strong Buy: ≥ %.0f\n", t.StrongBuyMin))
	b.WriteString(fmt.Sprintf("Buy: ≥ %.0f\n", t.BuyMin))
	if t.HasShorts && t.SellMax != nil && t.StrongSellMax != nil {
		b.WriteString(fmt.Sprintf("Sell: ≤ %.0f\n", *t.SellMax))
		b.WriteString(fmt.Sprintf("Strong Sell: ≤ %.0f\n", *t.StrongSellMax))
	} else {
		b.WriteString("Long only, no sell signals\n")
	}
	return b.String()
}

// FormatClassification formats an ad-hoc classification result.
func FormatClassification(cp model.ClassifiedPick) string {
	rec := displayLabel(cp.Recommendation)
	if cp.Direction == nil {
		return fmt.Sprintf("%s score %s in %s: <b>%s</b>", labelIcon(""), formatScore(cp.Pick.BlendScore), modeTitle(cp.Mode), rec)
	}
	return fmt.Sprintf("%s score %s in %s: <b>%s</b> (%s, %s, norm %+.2f)",
		labelIcon(cp.Recommendation), formatScore(cp.Pick.BlendScore), modeTitle(cp.Mode), rec,
		cp.Direction.Side, cp.Direction.Strength, cp.Direction.ScoreNorm)
}

// FormatAlertHistory formats recorded alerts, newest first.
func FormatAlertHistory(alerts []recorder.AlertEvent) string {
	var b strings.Builder
	b.WriteString("🔔 <b>Recent alerts</b>\n\n")
	if len(alerts) == 0 {
		b.WriteString("None recorded.")
		return b.String()
	}
	for _, a := range alerts {
		b.WriteString(fmt.Sprintf("%s %s %s/%s: %s → %s\n",
			a.Time.Format(time.DateTime), labelIcon(a.Current), html.EscapeString(a.Mode), html.EscapeString(a.Symbol),
			displayLabel(a.Previous), displayLabel(a.Current)))
	}
	return b.String()
}

// FormatWatchlist formats the remembered labels of a mode, signals first.
func FormatWatchlist(mode string, labels map[string]string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👀 <b>%s watchlist</b> (%d)\n\n", modeTitle(mode), len(labels)))
	if len(labels) == 0 {
		b.WriteString("Nothing tracked yet.")
		return b.String()
	}

	symbols := make([]string, 0, len(labels))
	for sym := range labels {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool {
		si, sj := labels[symbols[i]] != "", labels[symbols[j]] != ""
		if si != sj {
			return si
		}
		return symbols[i] < symbols[j]
	})
	for _, sym := range symbols {
		b.WriteString(fmt.Sprintf("%s %s: %s\n", labelIcon(labels[sym]), html.EscapeString(sym), displayLabel(labels[sym])))
	}
	return b.String()
}
