package model

import "time"

type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
	RoomShared RoomType = "shared"
)

func (t RoomType) Valid() bool {
	return t == RoomSingle || t == RoomDouble || t == RoomShared
}

type PropertyStatus string

const (
	PropertyPending  PropertyStatus = "pending"
	PropertyApproved PropertyStatus = "approved"
	PropertyRejected PropertyStatus = "rejected"
	PropertyArchived PropertyStatus = "archived"
)

type Address struct {
	Line1    string `json:"line1" bson:"line1" validate:"required,min=2,max=200"`
	City     string `json:"city" bson:"city" validate:"required,min=2,max=80"`
	Postcode string `json:"postcode,omitempty" bson:"postcode,omitempty" validate:"omitempty,max=20"`
}

type RoomTypes struct {
	Single int `json:"single" bson:"single" validate:"min=0,max=500"`
	Double int `json:"double" bson:"double" validate:"min=0,max=500"`
	Shared int `json:"shared" bson:"shared" validate:"min=0,max=500"`
}

func (r RoomTypes) Total() int {
	return r.Single + r.Double + r.Shared
}

// Has reports whether the listing offers at least one room of type t.
func (r RoomTypes) Has(t RoomType) bool {
	switch t {
	case RoomSingle:
		return r.Single > 0
	case RoomDouble:
		return r.Double > 0
	case RoomShared:
		return r.Shared > 0
	}
	return false
}

type LiveStats struct {
	OccupiedRooms int   `json:"occupied_rooms" bson:"occupied_rooms"`
	Views         int64 `json:"views" bson:"views"`
}

type Property struct {
	ID             string         `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID        string         `json:"owner_id" bson:"owner_id"`
	Title          string         `json:"title" bson:"title"`
	Description    string         `json:"description" bson:"description"`
	Address        Address        `json:"address" bson:"address"`
	University     string         `json:"university,omitempty" bson:"university,omitempty"`
	PricePerMonth  float64        `json:"price_per_month" bson:"price_per_month"`
	Deposit        float64        `json:"deposit" bson:"deposit"`
	Amenities      []string       `json:"amenities" bson:"amenities"`
	Images         []string       `json:"images" bson:"images"`
	RoomTypes      RoomTypes      `json:"room_types" bson:"room_types"`
	TotalRooms     int            `json:"total_rooms" bson:"total_rooms"`
	LiveStats      LiveStats      `json:"live_stats" bson:"live_stats"`
	Status         PropertyStatus `json:"status" bson:"status"`
	ModerationNote string         `json:"moderation_note,omitempty" bson:"moderation_note,omitempty"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" bson:"updated_at"`
}

func (p *Property) AvailableRooms() int {
	return max(0, p.TotalRooms-p.LiveStats.OccupiedRooms)
}

type PropertyCreate struct {
	Title         string    `json:"title" validate:"required,min=3,max=150"`
	Description   string    `json:"description" validate:"required,min=10,max=5000"`
	Address       Address   `json:"address" validate:"required"`
	University    string    `json:"university,omitempty" validate:"omitempty,max=150"`
	PricePerMonth float64   `json:"price_per_month" validate:"required,gt=0,lte=1000000"`
	Deposit       float64   `json:"deposit" validate:"gte=0,lte=1000000"`
	Amenities     []string  `json:"amenities,omitempty" validate:"omitempty,max=50,dive,required,max=50"`
	Images        []string  `json:"images,omitempty" validate:"omitempty,max=20,dive,required,url"`
	RoomTypes     RoomTypes `json:"room_types" validate:"required"`
}

type PropertyUpdate struct {
	Title         *string    `json:"title,omitempty" validate:"omitempty,min=3,max=150"`
	Description   *string    `json:"description,omitempty" validate:"omitempty,min=10,max=5000"`
	Address       *Address   `json:"address,omitempty" validate:"omitempty"`
	University    *string    `json:"university,omitempty" validate:"omitempty,max=150"`
	PricePerMonth *float64   `json:"price_per_month,omitempty" validate:"omitempty,gt=0,lte=1000000"`
	Deposit       *float64   `json:"deposit,omitempty" validate:"omitempty,gte=0,lte=1000000"`
	Amenities     *[]string  `json:"amenities,omitempty" validate:"omitempty,max=50,dive,required,max=50"`
	Images        *[]string  `json:"images,omitempty" validate:"omitempty,max=20,dive,required,url"`
	RoomTypes     *RoomTypes `json:"room_types,omitempty" validate:"omitempty"`
}

type PropertySearch struct {
	City          string
	University    string
	MinPrice      *float64
	MaxPrice      *float64
	RoomType      RoomType
	AvailableOnly bool
}

type Availability struct {
	PropertyID     string `json:"property_id"`
	TotalRooms     int    `json:"total_rooms"`
	OccupiedRooms  int    `json:"occupied_rooms"`
	AvailableRooms int    `json:"available_rooms"`
}

type ModerationDecision struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty" validate:"omitempty,max=500"`
}
