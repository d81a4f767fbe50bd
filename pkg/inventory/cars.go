// Package inventory provides the static car catalog and the
// filter-sort-truncate query behind the show_top_cars tool.
package inventory

import (
	"fmt"
	"sort"
)

// Car types and sale types offered in the catalog.
const (
	TypeEconomy = "economy"
	TypeSedan   = "sedan"
	TypeSUV     = "suv"
	TypeLuxury  = "luxury"
	TypeVan     = "van"

	SaleRental   = "rental"
	SaleLease    = "lease"
	SalePurchase = "purchase"
)

// Car describes one catalog entry.
type Car struct {
	Make           string   `json:"make"`
	Model          string   `json:"model"`
	Year           int      `json:"year"`
	Price          float64  `json:"price"`
	Type           string   `json:"type"`
	SaleType       string   `json:"sale_type"`
	FuelEfficiency int      `json:"fuel_efficiency"`
	Features       []string `json:"features"`
	Horsepower     int      `json:"horsepower"`
	Seats          int      `json:"seats"`
	Mileage        int      `json:"mileage"`
}

// Query filters the catalog. Every predicate is optional; absent
// predicates impose no constraint, and all present predicates must hold
// (conjunctive).
type Query struct {
	Makes             []string
	Models            []string
	YearGTE           int
	YearLTE           int
	BudgetLow         float64
	BudgetHigh        float64
	CarType           string
	SaleType          string
	FuelEfficiencyGTE int
	Features          []string
	HorsepowerGTE     int
	SeatsGTE          int

	// OrderBy must be one of year, price, or mileage; empty defaults to
	// price. Results are ascending.
	OrderBy string

	// TopN truncates the result; zero or negative defaults to 5.
	TopN int
}

const defaultTopN = 5

// TopCars runs the query against the catalog.
func TopCars(cars []Car, q Query) ([]Car, error) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "price"
	}
	switch orderBy {
	case "year", "price", "mileage":
	default:
		return nil, fmt.Errorf("inventory: invalid order_by %q", q.OrderBy)
	}

	topN := q.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	matched := make([]Car, 0, len(cars))
	for _, car := range cars {
		if q.matches(car) {
			matched = append(matched, car)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		switch orderBy {
		case "year":
			return matched[i].Year < matched[j].Year
		case "mileage":
			return matched[i].Mileage < matched[j].Mileage
		default:
			return matched[i].Price < matched[j].Price
		}
	})

	if len(matched) > topN {
		matched = matched[:topN]
	}
	return matched, nil
}

func (q Query) matches(car Car) bool {
	if len(q.Makes) > 0 && !contains(q.Makes, car.Make) {
		return false
	}
	if len(q.Models) > 0 && !contains(q.Models, car.Model) {
		return false
	}
	if q.YearGTE != 0 && car.Year < q.YearGTE {
		return false
	}
	if q.YearLTE != 0 && car.Year > q.YearLTE {
		return false
	}
	if q.BudgetLow != 0 && car.Price < q.BudgetLow {
		return false
	}
	if q.BudgetHigh != 0 && car.Price > q.BudgetHigh {
		return false
	}
	if q.CarType != "" && car.Type != q.CarType {
		return false
	}
	if q.SaleType != "" && car.SaleType != q.SaleType {
		return false
	}
	if q.FuelEfficiencyGTE != 0 && car.FuelEfficiency < q.FuelEfficiencyGTE {
		return false
	}
	if q.HorsepowerGTE != 0 && car.Horsepower < q.HorsepowerGTE {
		return false
	}
	if q.SeatsGTE != 0 && car.Seats < q.SeatsGTE {
		return false
	}
	for _, feature := range q.Features {
		if !contains(car.Features, feature) {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
