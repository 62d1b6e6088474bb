package model

import (
	"fmt"
	"strings"
)

// Category is the service period a reservation or layout belongs to.
type Category string

const (
	CategoryLunch         Category = "lunch"
	CategoryDinner        Category = "dinner"
	CategoryNoBookingZone Category = "noBookingZone"
)

// Categories lists every known category in service order.
var Categories = []Category{CategoryLunch, CategoryDinner, CategoryNoBookingZone}

// ParseCategory accepts the canonical names case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lunch":
		return CategoryLunch, nil
	case "dinner":
		return CategoryDinner, nil
	case "nobookingzone", "no_booking_zone", "no-booking-zone":
		return CategoryNoBookingZone, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}
