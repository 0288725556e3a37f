package lifecycle

import (
	"testing"
	"time"

	"unistay/pkg/model"
)

func TestRefund_Tiers(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name    string
		status  model.PaymentStatus
		paid    float64
		checkIn time.Time
		want    float64
	}{
		{"paid 10 days out", model.PaymentPaid, 1000, now.Add(10 * day), 1000},
		{"paid 8 days out", model.PaymentPaid, 1000, now.Add(8 * day), 1000},
		{"paid exactly 7 days out", model.PaymentPaid, 1000, now.Add(7 * day), 500},
		{"paid 7.5 days out", model.PaymentPaid, 1000, now.Add(7*day + 12*time.Hour), 500},
		{"paid 5 days out", model.PaymentPaid, 1000, now.Add(5 * day), 500},
		{"paid exactly 3 days out", model.PaymentPaid, 1000, now.Add(3 * day), 500},
		{"paid 2 days out", model.PaymentPaid, 1000, now.Add(2 * day), 0},
		{"paid after check-in", model.PaymentPaid, 1000, now.Add(-2 * day), 0},
		{"unpaid", model.PaymentUnpaid, 0, now.Add(30 * day), 0},
		{"already refunded", model.PaymentRefunded, 1000, now.Add(30 * day), 0},
		{"paid zero", model.PaymentPaid, 0, now.Add(30 * day), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Refund(tt.status, tt.paid, tt.checkIn, now)
			if got != tt.want {
				t.Errorf("expected %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

func TestRefund_Deterministic(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	checkIn := now.Add(5 * 24 * time.Hour)

	first := Refund(model.PaymentPaid, 1234.56, checkIn, now)
	for i := 0; i < 5; i++ {
		if got := Refund(model.PaymentPaid, 1234.56, checkIn, now); got != first {
			t.Fatalf("refund changed between calls: %.2f vs %.2f", first, got)
		}
	}
	if first != 617.28 {
		t.Errorf("expected 617.28, got %.2f", first)
	}
}

func TestRefundFor(t *testing.T) {
	now := time.Now()
	b := &model.Booking{
		PaymentStatus: model.PaymentPaid,
		AmountPaid:    800,
		CheckInDate:   now.Add(24 * time.Hour),
	}

	if got := RefundFor(Transition{Refund: RefundFull}, b, now); got != 800 {
		t.Errorf("owner reject should refund in full, got %.2f", got)
	}
	if got := RefundFor(Transition{Refund: RefundTiered}, b, now); got != 0 {
		t.Errorf("late cancellation should refund nothing, got %.2f", got)
	}
	if got := RefundFor(Transition{Refund: RefundNone}, b, now); got != 0 {
		t.Errorf("expected no refund, got %.2f", got)
	}
}
