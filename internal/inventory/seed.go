package inventory

import "github.com/example/lodging-aggregator/internal/models"

// Seed fills a MemoryRepo with a small fixed inventory so the server runs
// without a database.
func Seed(r *MemoryRepo) {
	listings := []models.Listing{
		{
			ID: "101", Name: "Casa do Pelourinho", PropertyType: "house",
			Location: models.Location{Address: "Largo do Pelourinho 12", City: "Salvador", State: "BA", Lat: -12.9714, Lng: -38.5014},
			Capacity: models.Capacity{Accommodates: 4, Bedrooms: 2, Bathrooms: 1.5, Beds: 3},
			BasePricePerNight: 280, Currency: "BRL", Rating: 4.7, ReviewCount: 182,
			Amenities:          []string{"wifi", "kitchen", "air_conditioning"},
			InstantBookable:    true,
			Images:             []string{"https://img.example/pelourinho-1.jpg"},
			CancellationPolicy: models.PolicyForTier(models.CancellationModerate),
		},
		{
			ID: "102", Name: "Apartamento Barra Vista Mar", PropertyType: "apartment",
			Location: models.Location{Address: "Av. Oceânica 500", City: "Salvador", State: "BA", Lat: -13.0097, Lng: -38.5266},
			Capacity: models.Capacity{Accommodates: 2, Bedrooms: 1, Bathrooms: 1, Beds: 1},
			BasePricePerNight: 190, Currency: "BRL", Rating: 4.4, ReviewCount: 95,
			Amenities:          []string{"wifi", "pool", "beach_access"},
			InstantBookable:    false,
			Images:             []string{"https://img.example/barra-1.jpg"},
			CancellationPolicy: models.PolicyForTier(models.CancellationFlexible),
		},
		{
			ID: "103", Name: "Loft Rio Vermelho", PropertyType: "loft",
			Location: models.Location{Address: "Rua da Paciência 88", City: "Salvador", State: "BA", Lat: -13.0131, Lng: -38.4910},
			Capacity: models.Capacity{Accommodates: 3, Bedrooms: 1, Bathrooms: 1, Beds: 2},
			BasePricePerNight: 230, Currency: "BRL", Rating: 4.9, ReviewCount: 64,
			Amenities:          []string{"wifi", "kitchen", "workspace"},
			InstantBookable:    true,
			Images:             []string{"https://img.example/riovermelho-1.jpg"},
			CancellationPolicy: models.PolicyForTier(models.CancellationStrict),
		},
		{
			ID: "104", Name: "Estúdio Centro SP", PropertyType: "studio",
			Location: models.Location{Address: "Rua Augusta 1500", City: "São Paulo", State: "SP", Lat: -23.5558, Lng: -46.6601},
			Capacity: models.Capacity{Accommodates: 2, Bedrooms: 1, Bathrooms: 1, Beds: 1},
			BasePricePerNight: 160, Currency: "BRL", Rating: 4.2, ReviewCount: 210,
			Amenities:          []string{"wifi", "workspace", "gym"},
			InstantBookable:    true,
			Images:             []string{"https://img.example/augusta-1.jpg"},
			CancellationPolicy: models.PolicyForTier(models.CancellationFlexible),
		},
	}
	for _, l := range listings {
		r.Add(l)
	}
}
