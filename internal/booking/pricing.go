package booking

import (
	"fmt"
	"strconv"
)

// Pricer turns a venue price and guest count into the amount to charge now.
// All amounts are minor currency units.
type Pricer struct {
	AdvancePercent int64  // share of the total charged for an advance payment
	CeilingMinor   int64  // largest order the gateway accepts
	Currency       string // ISO code, used for descriptions
}

// Quote is the outcome of pricing a booking.
type Quote struct {
	TotalMinor   int64  `json:"total_amount_minor"`
	PayableMinor int64  `json:"payable_amount_minor"`
	Advance      bool   `json:"is_advance_payment"`
	Capped       bool   `json:"capped"`
	Description  string `json:"description"`
}

// Quote prices guests at pricePerPersonMinor.  An advance payment is
// AdvancePercent of the total, rounded half up to the minor unit.  The
// payable amount never exceeds CeilingMinor.
func (p Pricer) Quote(pricePerPersonMinor int64, guests int, advance bool) Quote {
	total := pricePerPersonMinor * int64(guests)
	q := Quote{TotalMinor: total, PayableMinor: total, Advance: advance, Description: "Full Payment"}
	if advance {
		q.PayableMinor = (total*p.AdvancePercent + 50) / 100
		q.Description = fmt.Sprintf("%d%% Advance Payment", p.AdvancePercent)
	}
	if capped, ok := p.Clamp(q.PayableMinor); ok {
		q.PayableMinor = capped
		q.Capped = true
		q.Description = fmt.Sprintf("Partial Payment (Capped at %s)", p.FormatAmount(p.CeilingMinor))
	}
	return q
}

// Clamp limits amount to the ceiling and reports whether it was reduced.
func (p Pricer) Clamp(amount int64) (int64, bool) {
	if p.CeilingMinor > 0 && amount > p.CeilingMinor {
		return p.CeilingMinor, true
	}
	return amount, false
}

// FormatAmount renders minor units as a grouped major amount, e.g. ₹40,000.00.
func (p Pricer) FormatAmount(minor int64) string {
	sym := p.Currency + " "
	if p.Currency == "" || p.Currency == "INR" {
		sym = "₹"
	}
	neg := minor < 0
	if neg {
		minor = -minor
	}
	whole := strconv.FormatInt(minor/100, 10)
	var grouped []byte
	for i := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, whole[i])
	}
	out := fmt.Sprintf("%s%s.%02d", sym, grouped, minor%100)
	if neg {
		out = "-" + out
	}
	return out
}
