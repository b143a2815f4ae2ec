package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// FlatNumberLength is the fixed width of a flat number, e.g. "1101".
const FlatNumberLength = 4

// ErrInvalidFlatNumber is returned when a flat number cannot yield a floor.
var ErrInvalidFlatNumber = errors.New("flat number must be 4 characters starting with a 2-digit floor")

// Building is a structure containing flats.
type Building struct {
	ID                     string
	Name                   string
	Code                   string
	TotalFloors            int
	VisibleForRegistration bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NormalizeBuildingCode trims and upper-cases a building code.
func NormalizeBuildingCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Flat is a unit inside a building.
type Flat struct {
	ID         string
	BuildingID string
	FlatNumber string
	Floor      int
	BHKType    string
	OwnerID    *string
	TenantID   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FloorFromFlatNumber derives the floor from the first two characters of a flat
// number ("1101" is on floor 11). This is a naming convention of the society and is
// only used when no explicit floor is supplied.
func FloorFromFlatNumber(number string) (int, error) {
	number = strings.TrimSpace(number)
	if utf8.RuneCountInString(number) != FlatNumberLength {
		return 0, ErrInvalidFlatNumber
	}
	prefix := number[:2]
	for i := 0; i < len(prefix); i++ {
		if prefix[i] < '0' || prefix[i] > '9' {
			return 0, ErrInvalidFlatNumber
		}
	}
	floor, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, ErrInvalidFlatNumber
	}
	return floor, nil
}
