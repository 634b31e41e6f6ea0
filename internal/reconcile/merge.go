package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"courtstats/internal/core"
)

// VenueClassifier resolves an activity title to a venue name.
type VenueClassifier interface {
	Classify(title string) string
}

// Merger groups outgoing orders into per-slot activities.
type Merger struct {
	venues VenueClassifier
	logger *slog.Logger
}

// NewMerger creates a merger. A nil logger falls back to slog.Default().
func NewMerger(venues VenueClassifier, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{venues: venues, logger: logger}
}

type group struct {
	key        string
	rows       []core.OrderRow
	total      decimal.Decimal
	earliest   time.Time
	signups    int
	supplement int
}

// Merge reconciles outgoing orders into activities sorted by start time.
//
// Orders sharing title, start minute and organizer form one group. A group
// expands into max(signups, supplements) slots (at least one), and the group
// total is split evenly across them.
func (m *Merger) Merge(ctx context.Context, outgoing []core.OrderRow) []core.Activity {
	groups := make([]*group, 0)
	index := make(map[string]int)

	for _, r := range outgoing {
		key := r.GroupKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, &group{key: key, total: decimal.Zero, earliest: r.PaidAt})
		}
		g := groups[i]
		g.rows = append(g.rows, r)
		g.total = g.total.Add(r.Amount)
		if r.PaidAt.Before(g.earliest) {
			g.earliest = r.PaidAt
		}
		switch r.Method {
		case core.MethodSignup:
			g.signups++
		case core.MethodSupplement:
			g.supplement++
		}
	}

	activities := make([]core.Activity, 0, len(outgoing))
	for _, g := range groups {
		if g.supplement > g.signups {
			m.logger.DebugContext(ctx, "Group has more supplements than sign-ups",
				"group", g.key,
				"signups", g.signups,
				"supplements", g.supplement)
		}
		activities = append(activities, m.expand(g)...)
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].StartTime.Before(activities[j].StartTime)
	})
	return activities
}

func (m *Merger) expand(g *group) []core.Activity {
	slots := max(g.signups, g.supplement, 1)
	perSlot := core.DivInt(g.total, slots)

	first := g.rows[0]
	methods := make([]string, len(g.rows))
	for i, r := range g.rows {
		methods[i] = string(r.Method)
	}
	venue := ""
	if m.venues != nil {
		venue = m.venues.Classify(first.Title)
	}

	out := make([]core.Activity, slots)
	for n := 1; n <= slots; n++ {
		out[n-1] = core.Activity{
			ID:                        core.SlotID(g.key, n),
			Title:                     first.Title,
			StartTime:                 first.StartTime,
			Organizer:                 first.Organizer,
			SourceRowCount:            len(g.rows),
			Amount:                    perSlot,
			EarliestPaymentTime:       g.earliest,
			IncludesSignupPayment:     g.signups > 0,
			IncludesSupplementPayment: g.supplement > 0,
			PaymentMethods:            append([]string(nil), methods...),
			Venue:                     venue,
			TotalSlotsInGroup:         slots,
			IsGroupBooking:            slots > 1,
		}
	}
	return out
}
