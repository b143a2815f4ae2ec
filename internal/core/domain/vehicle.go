package domain

import (
	"strings"
	"time"
	"unicode"
)

// VehicleType classifies a registered vehicle.
type VehicleType string

const (
	VehicleTypeCar     VehicleType = "CAR"
	VehicleTypeBike    VehicleType = "BIKE"
	VehicleTypeScooter VehicleType = "SCOOTER"
	VehicleTypeOther   VehicleType = "OTHER"
)

// Valid reports whether t is a known vehicle type.
func (t VehicleType) Valid() bool {
	switch t {
	case VehicleTypeCar, VehicleTypeBike, VehicleTypeScooter, VehicleTypeOther:
		return true
	}
	return false
}

// Vehicle is a resident's registered vehicle. Number is globally unique.
type Vehicle struct {
	ID          string
	OwnerID     string
	Number      string
	Type        VehicleType
	Brand       *string
	Model       *string
	Color       *string
	ParkingSlot *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeVehicleNumber removes whitespace and upper-cases a registration number,
// so "mh 12 ab 1234" and "MH12AB1234" collide on the unique constraint.
func NormalizeVehicleNumber(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
