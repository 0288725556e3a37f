package testutil

import (
	"time"

	"unistay/pkg/model"
)

func ValidProperty() *model.PropertyCreate {
	return &model.PropertyCreate{
		Title:       "Bright rooms near campus",
		Description: "Five minutes from the library, bills included.",
		Address: model.Address{
			Line1:    "12 College Road",
			City:     "Leeds",
			Postcode: "LS2 9JT",
		},
		University:    "University of Leeds",
		PricePerMonth: 550,
		Deposit:       550,
		Amenities:     []string{"wifi", "laundry"},
		RoomTypes:     model.RoomTypes{Single: 2, Double: 1},
	}
}

func ValidBooking(propertyID string) *model.BookingCreate {
	return &model.BookingCreate{
		PropertyID:     propertyID,
		RoomType:       model.RoomSingle,
		CheckInDate:    time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour),
		DurationMonths: 6,
		Notes:          "Arriving for the autumn term.",
	}
}
