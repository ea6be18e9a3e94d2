package journal

import (
	"fmt"
	"strings"
)

// FormatOrderOrg renders an OrderRecord as an Org-mode block with the
// structured facts in a PROPERTIES drawer.
func FormatOrderOrg(o OrderRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*** %s #%d %s %d %s\n", o.Status, o.Ticket, o.Action, o.Quantity, o.Symbol)
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TICKET: %d\n", o.Ticket)
	fmt.Fprintf(&b, ":DATE: %s\n", o.Date.Format(dateLayout))
	fmt.Fprintf(&b, ":SYMBOL: %s\n", o.Symbol)
	fmt.Fprintf(&b, ":STRATEGY: %s\n", o.Strategy)
	fmt.Fprintf(&b, ":TYPE: %s\n", o.Type)
	fmt.Fprintf(&b, ":PRICE: %.2f\n", o.Price)
	fmt.Fprintf(&b, ":TOTAL_COST: %.2f\n", o.TotalCost)
	fmt.Fprintf(&b, ":COMMISSIONS: %.2f\n", o.Commissions)
	fmt.Fprintf(&b, ":MARGIN: %.2f\n", o.Margin)
	if o.Reason != "" {
		fmt.Fprintf(&b, ":REASON: %s\n", o.Reason)
	}
	b.WriteString(":END:\n")
	return b.String()
}

func FormatOrdersOrg(orders []OrderRecord) string {
	var b strings.Builder
	for i, o := range orders {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatOrderOrg(o))
	}
	return b.String()
}
