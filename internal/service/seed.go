package service

import (
	"context"

	"github.com/iliyamo/terra-tranquil-api/internal/model"
)

func ptr(s string) *string { return &s }

// sampleBusinesses populate an empty directory.  Their scores were curated
// by hand and are stored as-is rather than derived from the checklist.
var sampleBusinesses = []model.Business{
	{
		Name:        "Leaf & Latte Café",
		Category:    "Cafés",
		Location:    "Downtown",
		Website:     ptr("https://leaflatte.example"),
		Description: ptr("Plant-forward menu, compostable packaging, local roasters."),
		EcoChecks:   []bool{true, true, true, true, false},
		EcoScore:    92,
	},
	{
		Name:        "Green Grove Grocers",
		Category:    "Groceries",
		Location:    "Riverside",
		Website:     ptr("https://greengrove.example"),
		Description: ptr("Organic produce, refill station, zero-waste aisle."),
		EcoChecks:   []bool{true, true, true, true, true},
		EcoScore:    88,
	},
	{
		Name:        "Willow Wellness Studio",
		Category:    "Wellness",
		Location:    "Old Town",
		Website:     ptr("https://willowwellness.example"),
		Description: ptr("Mindful movement with eco mats and clean air systems."),
		EcoChecks:   []bool{true, false, true, true, true},
		EcoScore:    84,
	},
	{
		Name:        "Harvest Hill Farm",
		Category:    "Farms",
		Location:    "Foothills",
		Website:     ptr("https://harvesthill.example"),
		Description: ptr("Regenerative agriculture and weekly harvest boxes."),
		EcoChecks:   []bool{true, true, true, false, true},
		EcoScore:    95,
	},
	{
		Name:        "Local Loop Shop",
		Category:    "Local Shops",
		Location:    "Market Street",
		Website:     ptr("https://localloop.example"),
		Description: ptr("Circular design goods and repair-friendly products."),
		EcoChecks:   []bool{true, true, false, true, true},
		EcoScore:    90,
	},
}

// Seed inserts the sample businesses when the directory is empty and
// reports how many were added.
func (d *Directory) Seed(ctx context.Context) (int, error) {
	n, err := d.businesses.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for i := range sampleBusinesses {
		b := sampleBusinesses[i]
		b.EcoChecks = append([]bool(nil), b.EcoChecks...)
		if err := d.businesses.Create(ctx, &b); err != nil {
			return i, err
		}
	}
	d.log.Info("seeded sample businesses", "count", len(sampleBusinesses))
	return len(sampleBusinesses), nil
}
