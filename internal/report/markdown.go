// Package report renders the evaluated position updates into the markdown
// action report the operator works through against the broker UI.
package report

import (
	"fmt"
	"strings"

	"github.com/mkruijs/positionbot/internal/domain"
)

// Markdown renders the action report. The heading and the three sections are
// fixed so downstream tooling can anchor on them; tickers are grouped by the
// action decided for them, in the order the updates were produced.
func Markdown(updates []domain.PositionUpdate) string {
	var b strings.Builder
	b.WriteString("# Degiro Actions\n")

	writeSection(&b, "## 1) MOVE STOP", updates, domain.ActionMoveStopUp, func(u domain.PositionUpdate) string {
		return fmt.Sprintf("- **%s** stop %.2f → %.2f | last %.2f | %.2fR - %s",
			u.Ticker, u.StopOld, u.StopSuggested, u.Last, u.RNow, u.Reason)
	})
	writeSection(&b, "## 2) CLOSE", updates, domain.ActionCloseStopHit, func(u domain.PositionUpdate) string {
		return fmt.Sprintf("- **%s** sell %d @ market | last %.2f ≤ stop %.2f - %s",
			u.Ticker, u.Shares, u.Last, u.StopOld, u.Reason)
	})
	writeSection(&b, "## 3) NO ACTION", updates, domain.ActionNone, func(u domain.PositionUpdate) string {
		return fmt.Sprintf("- **%s** last %.2f | stop %.2f | %.2fR - %s",
			u.Ticker, u.Last, u.StopOld, u.RNow, u.Reason)
	})

	return b.String()
}

func writeSection(b *strings.Builder, heading string, updates []domain.PositionUpdate, action domain.UpdateAction, line func(domain.PositionUpdate) string) {
	b.WriteString("\n" + heading + "\n")
	n := 0
	for _, u := range updates {
		if u.Action != action {
			continue
		}
		b.WriteString(line(u) + "\n")
		n++
	}
	if n == 0 {
		b.WriteString("_none_\n")
	}
}
