package domain

import "fmt"

// Category is a Saffir-Simpson hurricane category.
type Category int

const (
	Cat1 Category = iota + 1
	Cat2
	Cat3
	Cat4
	Cat5
)

// Categories lists the hurricane categories in ascending order.
var Categories = [5]Category{Cat1, Cat2, Cat3, Cat4, Cat5}

// Knots returns the minimum sustained wind for the category.
func (c Category) Knots() float64 {
	switch c {
	case Cat1:
		return 64
	case Cat2:
		return 83
	case Cat3:
		return 96
	case Cat4:
		return 113
	case Cat5:
		return 137
	}
	return 0
}

func (c Category) String() string {
	switch c {
	case Cat1:
		return "cat1"
	case Cat2:
		return "cat2"
	case Cat3:
		return "cat3"
	case Cat4:
		return "cat4"
	case Cat5:
		return "cat5"
	}
	return "unknown"
}

// CategoryFor returns the hurricane category for a sustained wind, or 0 below
// hurricane strength.
func CategoryFor(windKt float64) Category {
	for i := len(Categories) - 1; i >= 0; i-- {
		if windKt >= Categories[i].Knots() {
			return Categories[i]
		}
	}
	return 0
}

// Classification labels an observation from its HURDAT2 status and wind:
// "Cat1".."Cat5" for hurricanes, "TS", "TD", or the raw status otherwise.
func Classification(o Observation) string {
	if o.MaxWind == nil {
		return o.Status
	}
	w := *o.MaxWind
	switch o.Status {
	case "HU":
		if c := CategoryFor(w); c != 0 {
			return fmt.Sprintf("Cat%d", c)
		}
		return "HU"
	case "TS", "SS":
		return "TS"
	case "TD", "SD":
		return "TD"
	case "":
		if c := CategoryFor(w); c != 0 {
			return fmt.Sprintf("Cat%d", c)
		}
		switch {
		case w >= 34:
			return "TS"
		default:
			return "TD"
		}
	}
	return o.Status
}
