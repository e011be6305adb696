package api

import (
	"errors"
	"math"
	"time"
)

// Amortization is a locally computed repayment plan.
type Amortization struct {
	Monthly       float64
	TotalInterest float64
	TotalPayment  float64
	Schedule      []ScheduleEntry
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MonthlyInstalment returns the fixed monthly payment, rounded to cents, for
// amount borrowed at annualRate percent over months.
func MonthlyInstalment(amount, annualRate float64, months int) float64 {
	if months <= 0 {
		return 0
	}
	r := annualRate / 100 / 12
	if r == 0 {
		return round2(amount / float64(months))
	}
	f := math.Pow(1+r, float64(months))
	return round2(amount * r * f / (f - 1))
}

// Amortize builds the repayment schedule the server would compute for a
// credit accepted on start. Payment k falls k months after start and the
// final payment absorbs rounding drift so the balance closes at zero.
func Amortize(amount, annualRate float64, months int, start time.Time) (Amortization, error) {
	if amount <= 0 {
		return Amortization{}, errors.New("amount must be positive")
	}
	if months <= 0 {
		return Amortization{}, errors.New("duration must be positive")
	}
	if annualRate < 0 {
		return Amortization{}, errors.New("interest rate cannot be negative")
	}

	monthly := MonthlyInstalment(amount, annualRate, months)
	total := monthly * float64(months)
	plan := Amortization{
		Monthly:       monthly,
		TotalPayment:  round2(total),
		TotalInterest: round2(total - amount),
		Schedule:      make([]ScheduleEntry, 0, months),
	}

	r := annualRate / 100 / 12
	first := NewDate(start)
	balance := amount
	for k := 1; k <= months; k++ {
		interest := balance * r
		principal := monthly - interest
		payment := monthly
		if k == months {
			principal = balance
			payment = principal + interest
		}
		balance = round2(balance - principal)
		plan.Schedule = append(plan.Schedule, ScheduleEntry{
			Number:    k,
			Date:      first.AddMonths(k),
			Total:     round2(payment),
			Principal: round2(principal),
			Interest:  round2(interest),
			Balance:   balance,
		})
	}
	return plan, nil
}
