// Package promotion decides which promotions apply to an order and how much
// each one takes off. Evaluate is pure; catalog loading, caching and usage
// counting live in the repository and usecase subpackages.
package promotion

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypePercentage  Type = "percentage"
	TypeFixedAmount Type = "fixed_amount"
	// TypeBuyXGetY is listed when eligible but discounts nothing until its
	// per-unit semantics are defined.
	TypeBuyXGetY Type = "buy_x_get_y"
)

var hundred = decimal.NewFromInt(100)

// Date is a calendar day with no time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf takes the calendar fields of t as they are, without converting zones.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Rule is a parsed promotion row. Nil pointer fields mean "no restriction".
type Rule struct {
	ID          string
	Name        string
	Type        Type
	Value       decimal.Decimal
	MinAmount   *decimal.Decimal
	MaxDiscount *decimal.Decimal
	ValidFrom   Date
	ValidUntil  Date
	StartTime   *ClockTime
	EndTime     *ClockTime
	Days        *WeekdaySet
	MaxUses     *int64
	CurrentUses int64
	Active      bool
}

// FromModel validates a stored row and converts it to a Rule.
func FromModel(p *model.Promotion) (Rule, error) {
	r := Rule{
		ID:          p.ID,
		Name:        p.Name,
		Type:        Type(p.Type),
		Value:       p.Value,
		ValidFrom:   DateOf(p.ValidFrom),
		ValidUntil:  DateOf(p.ValidUntil),
		MaxUses:     p.MaxUses,
		CurrentUses: p.CurrentUses,
		Active:      p.IsActive,
	}

	switch r.Type {
	case TypePercentage, TypeFixedAmount, TypeBuyXGetY:
	default:
		return Rule{}, fmt.Errorf("promotion %s: unknown type %q", p.ID, p.Type)
	}
	if r.Value.IsNegative() {
		return Rule{}, fmt.Errorf("promotion %s: negative value %s", p.ID, r.Value)
	}
	if p.MinAmount.Valid {
		v := p.MinAmount.Decimal
		r.MinAmount = &v
	}
	if p.MaxDiscount.Valid {
		if p.MaxDiscount.Decimal.IsNegative() {
			return Rule{}, fmt.Errorf("promotion %s: negative max_discount %s", p.ID, p.MaxDiscount.Decimal)
		}
		v := p.MaxDiscount.Decimal
		r.MaxDiscount = &v
	}
	if p.StartTime != nil {
		c, err := ParseClockTime(strings.TrimSpace(*p.StartTime))
		if err != nil {
			return Rule{}, fmt.Errorf("promotion %s: start_time: %w", p.ID, err)
		}
		r.StartTime = &c
	}
	if p.EndTime != nil {
		c, err := ParseClockTime(strings.TrimSpace(*p.EndTime))
		if err != nil {
			return Rule{}, fmt.Errorf("promotion %s: end_time: %w", p.ID, err)
		}
		r.EndTime = &c
	}
	if p.DaysOfWeek != nil {
		set, err := ParseWeekdays(*p.DaysOfWeek)
		if err != nil {
			return Rule{}, fmt.Errorf("promotion %s: %w", p.ID, err)
		}
		r.Days = &set
	}
	return r, nil
}

// ParseCatalog converts rows to rules. Rows that fail to parse are left out and
// reported through the returned error; the remaining rules are still usable.
func ParseCatalog(rows []model.Promotion) ([]Rule, error) {
	rules := make([]Rule, 0, len(rows))
	var errs []error
	for i := range rows {
		r, err := FromModel(&rows[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, r)
	}
	return rules, errors.Join(errs...)
}

// Eligible reports whether the rule applies to an order of orderTotal placed
// at now. now must already be in the business time zone.
func (r *Rule) Eligible(orderTotal decimal.Decimal, now time.Time) bool {
	if !r.Active {
		return false
	}
	today := DateOf(now)
	if today.Before(r.ValidFrom) || r.ValidUntil.Before(today) {
		return false
	}
	if r.MinAmount != nil && orderTotal.LessThan(*r.MinAmount) {
		return false
	}
	if r.MaxUses != nil && r.CurrentUses >= *r.MaxUses {
		return false
	}
	clock := ClockOf(now)
	if r.StartTime != nil && clock < *r.StartTime {
		return false
	}
	if r.EndTime != nil && clock > *r.EndTime {
		return false
	}
	if r.Days != nil && !r.Days.Contains(now.Weekday()) {
		return false
	}
	return true
}

// Discount is the amount the rule takes off orderTotal, rounded to cents.
func (r *Rule) Discount(orderTotal decimal.Decimal) decimal.Decimal {
	switch r.Type {
	case TypePercentage:
		d := r.Value.Mul(orderTotal).Div(hundred)
		if r.MaxDiscount != nil {
			d = decimal.Min(d, *r.MaxDiscount)
		}
		return d.Round(2)
	case TypeFixedAmount:
		return decimal.Min(r.Value, orderTotal).Round(2)
	default:
		return decimal.Zero
	}
}

type Applicable struct {
	Rule     Rule
	Discount decimal.Decimal
}

// Evaluate filters rules to those eligible at now for orderTotal and orders
// them by discount, largest first, ties broken by promotion id ascending.
func Evaluate(rules []Rule, orderTotal decimal.Decimal, now time.Time) []Applicable {
	out := make([]Applicable, 0, len(rules))
	for i := range rules {
		if !rules[i].Eligible(orderTotal, now) {
			continue
		}
		out = append(out, Applicable{Rule: rules[i], Discount: rules[i].Discount(orderTotal)})
	}
	slices.SortStableFunc(out, func(a, b Applicable) int {
		if c := b.Discount.Cmp(a.Discount); c != 0 {
			return c
		}
		return strings.Compare(a.Rule.ID, b.Rule.ID)
	})
	return out
}

// Best returns the first applicable promotion, or nil when none applies.
func Best(applicable []Applicable) *Applicable {
	if len(applicable) == 0 {
		return nil
	}
	return &applicable[0]
}
