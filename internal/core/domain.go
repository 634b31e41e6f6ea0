package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Literal values as they appear in payment exports.
const (
	DirectionOutgoing Direction = "出款(-)"
	DirectionIncoming Direction = "入款(+)"

	MethodSignup     PaymentMethod = "报名支付"
	MethodSupplement PaymentMethod = "少补支付"

	SettlementCompleted SettlementStatus = "已完成"
	SettlementRefunded  SettlementStatus = "已退款"

	PaymentStatusPaid = "已支付"
)

// slotSuffix separates the group key from the slot number in an activity ID.
const slotSuffix = "_slot"

// KeyTimeLayout renders start times inside grouping keys (minute precision).
const KeyTimeLayout = "200601021504"

type (
	Direction        string
	PaymentMethod    string
	SettlementStatus string

	// OrderRow is one payment record from an export.
	OrderRow struct {
		OrderNo       string           `json:"order_no,omitempty"`
		Title         string           `json:"title"`
		Amount        decimal.Decimal  `json:"amount"`
		Method        PaymentMethod    `json:"payment_method"`
		Direction     Direction        `json:"direction"`
		Settlement    SettlementStatus `json:"settlement_status"`
		PaymentStatus string           `json:"payment_status"`
		StartTime     time.Time        `json:"start_time"`
		PaidAt        time.Time        `json:"paid_at"`
		Organizer     string           `json:"organizer"`
		Registrant    string           `json:"registrant,omitempty"`
		SourceRow     int              `json:"source_row,omitempty"` // 1-based spreadsheet row
	}

	// Activity is one participation slot derived from one or more orders.
	Activity struct {
		ID                        string          `json:"id"`
		Title                     string          `json:"title"`
		StartTime                 time.Time       `json:"start_time"`
		Organizer                 string          `json:"organizer"`
		SourceRowCount            int             `json:"source_row_count"`
		Amount                    decimal.Decimal `json:"amount"`
		EarliestPaymentTime       time.Time       `json:"earliest_payment_time"`
		IncludesSignupPayment     bool            `json:"includes_signup_payment"`
		IncludesSupplementPayment bool            `json:"includes_supplement_payment"`
		PaymentMethods            []string        `json:"payment_methods"`
		Venue                     string          `json:"venue"`
		TotalSlotsInGroup         int             `json:"total_slots_in_group"`
		IsGroupBooking            bool            `json:"is_group_booking"`
	}

	// FilterResult is the settled view of a batch of orders.
	FilterResult struct {
		Completed     []OrderRow      `json:"completed"`
		Outgoing      []OrderRow      `json:"outgoing"`
		Incoming      []OrderRow      `json:"incoming"`
		TotalOutgoing decimal.Decimal `json:"total_outgoing"`
		TotalIncoming decimal.Decimal `json:"total_incoming"`
		NetSpent      decimal.Decimal `json:"net_spent"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrEmptyTitle       = errors.New("empty activity title")
	ErrEmptyOrganizer   = errors.New("empty organizer")
	ErrMissingTime      = errors.New("missing timestamp")

	// ErrEmptyInput is returned by aggregations that need at least one activity.
	ErrEmptyInput = errors.New("no activities to analyse")
	// ErrNoOutgoingOrders is returned when a batch has no completed outgoing payments.
	ErrNoOutgoingOrders = errors.New("no completed outgoing orders")
)

func (d Direction) IsValid() bool {
	return d == DirectionOutgoing || d == DirectionIncoming
}

func (s SettlementStatus) IsCompleted() bool {
	return s == SettlementCompleted
}

func (r OrderRow) Validate() error {
	if r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !r.Direction.IsValid() {
		return ErrInvalidDirection
	}
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(r.Organizer) == "" {
		return ErrEmptyOrganizer
	}
	if r.StartTime.IsZero() || r.PaidAt.IsZero() {
		return ErrMissingTime
	}
	return nil
}

// GroupKey identifies the real-world event an order belongs to.
// Two distinct events with equal title, minute and organizer share a key.
func (r OrderRow) GroupKey() string {
	return r.Title + "_" + r.StartTime.Format(KeyTimeLayout) + "_" + r.Organizer
}

// SlotID builds the activity ID for slot n (1-based) of a group.
func SlotID(groupKey string, n int) string {
	return groupKey + slotSuffix + strconv.Itoa(n)
}

// BaseID strips the slot suffix, returning the group key.
func (a Activity) BaseID() string {
	i := strings.LastIndex(a.ID, slotSuffix)
	if i < 0 {
		return a.ID
	}
	for _, c := range a.ID[i+len(slotSuffix):] {
		if c < '0' || c > '9' {
			return a.ID
		}
	}
	if i+len(slotSuffix) == len(a.ID) {
		return a.ID
	}
	return a.ID[:i]
}
