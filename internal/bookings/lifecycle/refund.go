package lifecycle

import (
	"math"
	"time"

	"unistay/pkg/model"
)

const (
	fullRefundDays = 7
	halfRefundDays = 3
)

// Refund computes the amount returned on a student cancellation.
//
//	paid and more than 7 days before check-in  -> 100%
//	paid and 3 to 7 days before check-in       -> 50%
//	anything else                              -> 0
//
// Days are whole days, truncated towards zero, between now and check-in.
func Refund(paymentStatus model.PaymentStatus, amountPaid float64, checkIn, now time.Time) float64 {
	if paymentStatus != model.PaymentPaid || amountPaid <= 0 {
		return 0
	}
	days := DaysUntil(checkIn, now)
	switch {
	case days > fullRefundDays:
		return round2(amountPaid)
	case days >= halfRefundDays:
		return round2(amountPaid * 0.5)
	}
	return 0
}

// FullRefund returns everything that was paid, used when the owner rejects.
func FullRefund(paymentStatus model.PaymentStatus, amountPaid float64) float64 {
	if paymentStatus != model.PaymentPaid || amountPaid <= 0 {
		return 0
	}
	return round2(amountPaid)
}

// RefundFor applies the policy attached to a transition.
func RefundFor(t Transition, b *model.Booking, now time.Time) float64 {
	switch t.Refund {
	case RefundFull:
		return FullRefund(b.PaymentStatus, b.AmountPaid)
	case RefundTiered:
		return Refund(b.PaymentStatus, b.AmountPaid, b.CheckInDate, now)
	}
	return 0
}

func DaysUntil(checkIn, now time.Time) int {
	return int(checkIn.Sub(now) / (24 * time.Hour))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
