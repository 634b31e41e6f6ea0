// Package reconcile turns settled payment orders into activities.
package reconcile

import (
	"courtstats/internal/core"
)

// Filter keeps completed orders and splits them by direction. The returned
// slices never alias the input.
func Filter(rows []core.OrderRow) core.FilterResult {
	res := core.FilterResult{
		Completed: make([]core.OrderRow, 0, len(rows)),
		Outgoing:  make([]core.OrderRow, 0, len(rows)),
		Incoming:  make([]core.OrderRow, 0),
	}
	for _, r := range rows {
		if !r.Settlement.IsCompleted() {
			continue
		}
		res.Completed = append(res.Completed, r)
		switch r.Direction {
		case core.DirectionOutgoing:
			res.Outgoing = append(res.Outgoing, r)
		case core.DirectionIncoming:
			res.Incoming = append(res.Incoming, r)
		}
	}
	res.TotalOutgoing = core.SumAmounts(res.Outgoing)
	res.TotalIncoming = core.SumAmounts(res.Incoming)
	res.NetSpent = res.TotalOutgoing.Sub(res.TotalIncoming)
	return res
}
