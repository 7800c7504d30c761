package handlers

import (
	"time"

	"vape-market-backend/internal/models"
)

// demoFeed is shown while the store is unreachable so the Mini App never renders empty
var demoFeed = []models.Listing{
	{ID: "demo-1", Title: "Vaporesso XROS 3", Category: "pod", Kind: models.KindOffering, Price: 1800, OwnerName: "Барахолка", Description: "Пример объявления"},
	{ID: "demo-2", Title: "Voopoo Drag X", Category: "mod", Kind: models.KindOffering, Price: 3500, OwnerName: "Барахолка", Description: "Пример объявления"},
	{ID: "demo-3", Title: "Husky Double Ice 30 мл", Category: "liquid", Kind: models.KindOffering, Price: 450, OwnerName: "Барахолка", Description: "Пример объявления"},
	{ID: "demo-4", Title: "Ищу бак Zeus X", Category: "atomizer", Kind: models.KindSeeking, OwnerName: "Барахолка", Description: "Пример объявления"},
	{ID: "demo-5", Title: "Коил 0.4 Ом, 5 шт", Category: "accessories", Kind: models.KindOffering, Price: 300, OwnerName: "Барахолка", Description: "Пример объявления"},
}

// demoListings returns fresh copies of the demo feed narrowed to a normalized category
func demoListings(category string) []*models.Listing {
	now := time.Now()
	out := make([]*models.Listing, 0, len(demoFeed))
	for _, l := range demoFeed {
		if category != "" && l.Category != category {
			continue
		}
		l.PhotoRefs = []string{}
		l.CreatedAt = now
		l.ExpiresAt = now
		out = append(out, &l)
	}
	return out
}
