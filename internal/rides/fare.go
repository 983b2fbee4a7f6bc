package rides

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// FareQuoter estimates the fare for a booking.
type FareQuoter func() decimal.Decimal

// RandomFare quotes a placeholder fare between 10.00 and 39.99.
func RandomFare() decimal.Decimal {
	cents := 1000 + rand.Int64N(3000)
	return decimal.New(cents, -2)
}
