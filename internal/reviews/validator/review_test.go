package validator

import (
	"errors"
	"testing"

	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/validation"
)

func TestValidate(t *testing.T) {
	v := NewReviewValidator(logger.Discard())
	valid := model.ReviewCreate{BookingID: "64b7f0c2a1b2c3d4e5f60718", Rating: 4, Comment: "Quiet and close to campus"}

	tests := []struct {
		name      string
		mutate    func(*model.ReviewCreate)
		wantField string
	}{
		{name: "valid", mutate: func(*model.ReviewCreate) {}},
		{name: "rating too high", mutate: func(r *model.ReviewCreate) { r.Rating = 6 }, wantField: "rating"},
		{name: "rating missing", mutate: func(r *model.ReviewCreate) { r.Rating = 0 }, wantField: "rating"},
		{name: "bad booking id", mutate: func(r *model.ReviewCreate) { r.BookingID = "b1" }, wantField: "booking_id"},
		{name: "short comment", mutate: func(r *model.ReviewCreate) { r.Comment = "ok" }, wantField: "comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			err := v.Validate(&input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verrs validation.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %s, want %s", verrs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidateModeration(t *testing.T) {
	v := NewReviewValidator(logger.Discard())
	if err := v.ValidateModeration(&model.ReviewModeration{Status: model.ReviewFlagged}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateModeration(&model.ReviewModeration{Status: "deleted"}); err == nil {
		t.Error("expected unknown status to fail")
	}
}
