package credit

import "github.com/shopspring/decimal"

type Decision int

const (
	Approved Decision = iota
	Rejected
)

func (d Decision) String() string {
	if d == Approved {
		return "APPROVED"
	}
	return "REJECTED"
}

// Authorize decides whether a charge fits inside the credit line.
// Approve iff usage + amount <= limit; landing exactly on the limit is an
// approval. Pure function: the caller owns fetching a fresh usage value.
//
// Amounts are exact decimals end to end. Binary floating point is banned
// here: summing many charges in float64 drifts, and a drifted usage flips
// decisions at the boundary.
func Authorize(limit, usage, amount decimal.Decimal) Decision {
	if usage.Add(amount).LessThanOrEqual(limit) {
		return Approved
	}
	return Rejected
}
