package market

import "fmt"

// Status classes, used as CSS class names and as keys for the humor embeds.
const (
	ClassYes      = "yes"
	ClassBleeding = "bleeding"
	ClassWobbly   = "wobbly"
	ClassNo       = "no"
	ClassClimbing = "climbing"
	ClassSideways = "sideways"
	ClassError    = "error"
)

// Status is the site-facing verdict derived from a quote.
type Status struct {
	Text     string // headline, e.g. "YES!"
	Class    string // CSS class / embed key
	Arrow    string // direction glyph
	Subtitle string
	Warning  string // non-fatal data problem surfaced to the reader
}

// Classify maps a daily percent change onto a market status.
// The thresholds are asymmetric on purpose: a crash needs a -10% move,
// while "still climbing" starts at +2%.
func Classify(changePercent *float64) Status {
	var dp float64
	warning := ""
	if changePercent == nil {
		// Provider omitted the change. Treat as flat but tell the reader.
		warning = "Could not retrieve percent change for the index."
	} else {
		dp = *changePercent
	}

	switch {
	case dp <= -10:
		return Status{
			Text:     "YES!",
			Class:    ClassYes,
			Arrow:    "▼",
			Subtitle: fmt.Sprintf("S&P 500 down %.2f%%. Deep breaths.", dp),
			Warning:  warning,
		}
	case dp <= -5:
		return Status{
			Text:     "BLEEDING",
			Class:    ClassBleeding,
			Arrow:    "▼",
			Subtitle: fmt.Sprintf("S&P 500 down %.2f%%. Minor dip.", dp),
			Warning:  warning,
		}
	case dp < -2:
		return Status{
			Text:     "WOBBLY",
			Class:    ClassWobbly,
			Arrow:    "▼",
			Subtitle: fmt.Sprintf("S&P 500 down %.2f%%. Looking shaky.", dp),
			Warning:  warning,
		}
	case dp > 2:
		return Status{
			Text:     "NOT YET!",
			Class:    ClassNo,
			Arrow:    "▲",
			Subtitle: fmt.Sprintf("S&P 500 up %.2f%%. Still climbing!", dp),
			Warning:  warning,
		}
	case dp > 0.2:
		return Status{
			Text:     "CLIMBING",
			Class:    ClassClimbing,
			Arrow:    "▲",
			Subtitle: fmt.Sprintf("S&P 500 up %.2f%%. Gentle rise.", dp),
			Warning:  warning,
		}
	default:
		return Status{
			Text:     "FLAT",
			Class:    ClassSideways,
			Arrow:    "▬",
			Subtitle: fmt.Sprintf("S&P 500 change: %.2f%%. Holding steady...", dp),
			Warning:  warning,
		}
	}
}

// ErrorStatus is rendered when the quote could not be fetched at all.
// The page still publishes; the reader sees that the data is stale.
func ErrorStatus(fetchErr error) Status {
	warning := "Could not fetch market data."
	if fetchErr != nil {
		warning = fetchErr.Error()
	}
	return Status{
		Text:     "ERROR",
		Class:    ClassError,
		Arrow:    "?",
		Subtitle: "Could not fetch market data.",
		Warning:  warning,
	}
}
