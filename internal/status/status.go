// Package status maps free-text status tokens from legacy systems onto the
// canonical vocabularies. Two unrelated vocabularies exist, one for tickets
// and one for maintenance reports; both share the same folding algorithm.
package status

import "strings"

// TicketStatus is the canonical lifecycle status of a maintenance ticket.
type TicketStatus string

const (
	TicketOpen            TicketStatus = "OPEN"
	TicketInProgress      TicketStatus = "IN_PROGRESS"
	TicketWaitingForParts TicketStatus = "WAITING_FOR_PARTS"
	TicketDone            TicketStatus = "DONE"
	TicketCancelled       TicketStatus = "CANCELLED"
)

// DefaultTicketStatus is the fallback callers use when normalization fails.
var DefaultTicketStatus = TicketOpen

// IsTerminal reports whether the status ends the ticket lifecycle and
// triggers derived-report generation.
func (s TicketStatus) IsTerminal() bool { return s == TicketDone }

// ReportStatus is the canonical status of a derived maintenance report.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "DRAFT"
	ReportConfirmed ReportStatus = "CONFIRMED"
	ReportCompleted ReportStatus = "COMPLETED"
	ReportSettled   ReportStatus = "SETTLED"
)

// ticketSynonyms maps folded legacy ticket-status tokens to canonical values.
// Keys must already be in folded form.
var ticketSynonyms = map[string]TicketStatus{
	"NOWE":               TicketOpen,
	"NOWY":               TicketOpen,
	"OTWARTE":            TicketOpen,
	"ZGLOSZONE":          TicketOpen,
	"NEW":                TicketOpen,
	"W_TOKU":             TicketInProgress,
	"WTOKU":              TicketInProgress,
	"W_REALIZACJI":       TicketInProgress,
	"REALIZACJA":         TicketInProgress,
	"PRZYJETE":           TicketInProgress,
	"OCZEKUJE_NA_CZESCI": TicketWaitingForParts,
	"CZEKA_NA_CZESCI":    TicketWaitingForParts,
	"BRAK_CZESCI":        TicketWaitingForParts,
	"ZAKONCZONE":         TicketDone,
	"WYKONANE":           TicketDone,
	"ZAMKNIETE":          TicketDone,
	"GOTOWE":             TicketDone,
	"ANULOWANE":          TicketCancelled,
	"ODRZUCONE":          TicketCancelled,
}

// reportSynonyms maps folded legacy report-status tokens to canonical values.
// The report vocabulary is unrelated to the ticket one; "WYKONANE" is a
// terminal ticket synonym but a COMPLETED report synonym.
var reportSynonyms = map[string]ReportStatus{
	"SZKIC":         ReportDraft,
	"ROBOCZY":       ReportDraft,
	"POTWIERDZONE":  ReportConfirmed,
	"ZATWIERDZONE":  ReportConfirmed,
	"WYKONANE":      ReportCompleted,
	"ZREALIZOWANE":  ReportCompleted,
	"ROZLICZONE":    ReportSettled,
	"ZAFAKTUROWANE": ReportSettled,
}

// translit maps uppercase accented Latin letters to their base ASCII letters.
// Covers the Polish alphabet plus the common Latin-1 range seen in imports.
var translit = map[rune]rune{
	'Ą': 'A', 'Ć': 'C', 'Ę': 'E', 'Ł': 'L', 'Ń': 'N', 'Ó': 'O',
	'Ś': 'S', 'Ź': 'Z', 'Ż': 'Z',
	'À': 'A', 'Á': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A', 'Å': 'A',
	'Ç': 'C',
	'È': 'E', 'É': 'E', 'Ê': 'E', 'Ë': 'E',
	'Ì': 'I', 'Í': 'I', 'Î': 'I', 'Ï': 'I',
	'Ñ': 'N',
	'Ò': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O',
	'Ù': 'U', 'Ú': 'U', 'Û': 'U', 'Ü': 'U',
	'Ý': 'Y',
}

// Fold normalizes a raw token: uppercase, transliterate accents, collapse
// whitespace and hyphens to single underscores, drop anything else, collapse
// repeated underscores. Pure; never fails.
func Fold(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(upper))
	lastUnderscore := false
	for _, r := range upper {
		if mapped, ok := translit[r]; ok {
			r = mapped
		}
		switch {
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		default:
			// Strip everything else: punctuation, symbols, stray bytes.
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// NormalizeTicket maps a raw token to a canonical ticket status. The second
// return value is false when the token is not recognized; callers decide the
// fallback (commonly DefaultTicketStatus).
func NormalizeTicket(raw string) (TicketStatus, bool) {
	folded := Fold(raw)
	if folded == "" {
		return "", false
	}
	if canonical, ok := ticketSynonyms[folded]; ok {
		return canonical, true
	}
	switch TicketStatus(folded) {
	case TicketOpen, TicketInProgress, TicketWaitingForParts, TicketDone, TicketCancelled:
		return TicketStatus(folded), true
	}
	return "", false
}

// TicketStatusOrDefault normalizes raw, falling back to DefaultTicketStatus
// for unrecognized input.
func TicketStatusOrDefault(raw string) TicketStatus {
	if canonical, ok := NormalizeTicket(raw); ok {
		return canonical
	}
	return DefaultTicketStatus
}

// NormalizeReport maps a raw token to a canonical report status.
func NormalizeReport(raw string) (ReportStatus, bool) {
	folded := Fold(raw)
	if folded == "" {
		return "", false
	}
	if canonical, ok := reportSynonyms[folded]; ok {
		return canonical, true
	}
	switch ReportStatus(folded) {
	case ReportDraft, ReportConfirmed, ReportCompleted, ReportSettled:
		return ReportStatus(folded), true
	}
	return "", false
}
