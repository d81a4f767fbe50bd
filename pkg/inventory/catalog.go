package inventory

// Catalog returns the dealership's current stock. The slice is rebuilt
// per call so callers may reorder or truncate freely.
func Catalog() []Car {
	return []Car{
		{
			Make: "Toyota", Model: "Corolla", Year: 2022, Price: 21500,
			Type: TypeEconomy, SaleType: SalePurchase, FuelEfficiency: 35,
			Features:   []string{"backup camera", "lane assist", "bluetooth"},
			Horsepower: 169, Seats: 5, Mileage: 18200,
		},
		{
			Make: "Honda", Model: "Civic", Year: 2023, Price: 24300,
			Type: TypeEconomy, SaleType: SaleLease, FuelEfficiency: 36,
			Features:   []string{"sunroof", "apple carplay", "heated seats"},
			Horsepower: 158, Seats: 5, Mileage: 9400,
		},
		{
			Make: "Toyota", Model: "Camry", Year: 2024, Price: 28900,
			Type: TypeSedan, SaleType: SalePurchase, FuelEfficiency: 32,
			Features:   []string{"adaptive cruise", "blind spot monitor", "leather seats"},
			Horsepower: 203, Seats: 5, Mileage: 2100,
		},
		{
			Make: "Honda", Model: "Accord", Year: 2023, Price: 31200,
			Type: TypeSedan, SaleType: SaleLease, FuelEfficiency: 30,
			Features:   []string{"wireless charging", "heads-up display", "heated seats"},
			Horsepower: 192, Seats: 5, Mileage: 11800,
		},
		{
			Make: "Toyota", Model: "RAV4", Year: 2023, Price: 34500,
			Type: TypeSUV, SaleType: SalePurchase, FuelEfficiency: 28,
			Features:   []string{"all-wheel drive", "roof rails", "backup camera"},
			Horsepower: 203, Seats: 5, Mileage: 15600,
		},
		{
			Make: "Honda", Model: "CR-V", Year: 2024, Price: 36800,
			Type: TypeSUV, SaleType: SaleRental, FuelEfficiency: 29,
			Features:   []string{"all-wheel drive", "panoramic sunroof", "apple carplay"},
			Horsepower: 190, Seats: 5, Mileage: 3200,
		},
		{
			Make: "Ford", Model: "Explorer", Year: 2023, Price: 44900,
			Type: TypeSUV, SaleType: SalePurchase, FuelEfficiency: 24,
			Features:   []string{"third row", "tow package", "adaptive cruise"},
			Horsepower: 300, Seats: 7, Mileage: 21400,
		},
		{
			Make: "BMW", Model: "X5", Year: 2024, Price: 68500,
			Type: TypeSUV, SaleType: SaleLease, FuelEfficiency: 23,
			Features:   []string{"all-wheel drive", "premium audio", "massage seats"},
			Horsepower: 375, Seats: 5, Mileage: 1800,
		},
		{
			Make: "Mercedes-Benz", Model: "GLS", Year: 2024, Price: 89900,
			Type: TypeSUV, SaleType: SalePurchase, FuelEfficiency: 20,
			Features:   []string{"third row", "air suspension", "premium audio"},
			Horsepower: 375, Seats: 7, Mileage: 900,
		},
		{
			Make: "BMW", Model: "5 Series", Year: 2024, Price: 62400,
			Type: TypeLuxury, SaleType: SaleLease, FuelEfficiency: 27,
			Features:   []string{"heads-up display", "massage seats", "premium audio"},
			Horsepower: 335, Seats: 5, Mileage: 4100,
		},
		{
			Make: "Mercedes-Benz", Model: "S-Class", Year: 2023, Price: 118700,
			Type: TypeLuxury, SaleType: SalePurchase, FuelEfficiency: 24,
			Features:   []string{"rear executive seats", "air suspension", "night vision"},
			Horsepower: 429, Seats: 5, Mileage: 7600,
		},
		{
			Make: "Chrysler", Model: "Pacifica", Year: 2022, Price: 38700,
			Type: TypeVan, SaleType: SaleRental, FuelEfficiency: 25,
			Features:   []string{"stow and go seating", "rear entertainment", "power doors"},
			Horsepower: 287, Seats: 7, Mileage: 26900,
		},
		{
			Make: "Honda", Model: "Odyssey", Year: 2023, Price: 41200,
			Type: TypeVan, SaleType: SalePurchase, FuelEfficiency: 25,
			Features:   []string{"vacuum", "rear entertainment", "power doors"},
			Horsepower: 280, Seats: 8, Mileage: 12300,
		},
	}
}
