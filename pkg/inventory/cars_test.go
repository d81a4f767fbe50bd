package inventory

import "testing"

func TestTopCarsDefaultLimit(t *testing.T) {
	got, err := TopCars(Catalog(), Query{})
	if err != nil {
		t.Fatalf("TopCars: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected default 5 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Price < got[i-1].Price {
			t.Fatalf("results not ascending by price: %v > %v", got[i-1].Price, got[i].Price)
		}
	}
}

func TestTopCarsSUVUnderBudget(t *testing.T) {
	got, err := TopCars(Catalog(), Query{
		CarType:    "suv",
		BudgetHigh: 80000,
		OrderBy:    "price",
		TopN:       2,
	})
	if err != nil {
		t.Fatalf("TopCars: %v", err)
	}
	if len(got) > 2 {
		t.Fatalf("expected at most 2 results, got %d", len(got))
	}
	for i, car := range got {
		if car.Type != TypeSUV {
			t.Errorf("result %d is %q, want suv", i, car.Type)
		}
		if car.Price > 80000 {
			t.Errorf("result %d priced %v over budget", i, car.Price)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Price < got[i-1].Price {
			t.Errorf("results not ascending by price")
		}
	}
}

func TestTopCarsConjunctiveFilters(t *testing.T) {
	got, err := TopCars(Catalog(), Query{
		Makes:    []string{"Honda"},
		CarType:  "suv",
		Features: []string{"all-wheel drive"},
	})
	if err != nil {
		t.Fatalf("TopCars: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Model != "CR-V" {
		t.Fatalf("expected CR-V, got %s", got[0].Model)
	}
}

func TestTopCarsOrderBy(t *testing.T) {
	tests := []struct {
		orderBy string
		less    func(a, b Car) bool
	}{
		{"year", func(a, b Car) bool { return a.Year <= b.Year }},
		{"price", func(a, b Car) bool { return a.Price <= b.Price }},
		{"mileage", func(a, b Car) bool { return a.Mileage <= b.Mileage }},
	}
	for _, tt := range tests {
		got, err := TopCars(Catalog(), Query{OrderBy: tt.orderBy, TopN: 100})
		if err != nil {
			t.Fatalf("TopCars(%s): %v", tt.orderBy, err)
		}
		if len(got) != len(Catalog()) {
			t.Fatalf("order_by %s dropped rows: %d", tt.orderBy, len(got))
		}
		for i := 1; i < len(got); i++ {
			if !tt.less(got[i-1], got[i]) {
				t.Errorf("order_by %s not ascending at %d", tt.orderBy, i)
			}
		}
	}
}

func TestTopCarsInvalidOrderBy(t *testing.T) {
	if _, err := TopCars(Catalog(), Query{OrderBy: "horsepower"}); err == nil {
		t.Fatal("expected error for invalid order_by")
	}
}

func TestTopCarsNumericFloors(t *testing.T) {
	got, err := TopCars(Catalog(), Query{SeatsGTE: 7, HorsepowerGTE: 290, TopN: 100})
	if err != nil {
		t.Fatalf("TopCars: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one 7-seat 290+hp match")
	}
	for _, car := range got {
		if car.Seats < 7 || car.Horsepower < 290 {
			t.Errorf("car %s %s fails floors: seats=%d hp=%d", car.Make, car.Model, car.Seats, car.Horsepower)
		}
	}
}

func TestTopCarsNoMatches(t *testing.T) {
	got, err := TopCars(Catalog(), Query{CarType: "suv", BudgetHigh: 1000})
	if err != nil {
		t.Fatalf("TopCars: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}
