package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

// mockSearchItems fabricates a deterministic search result so integrations
// can be developed without live credentials. The caller has already clamped
// req.ItemCount to the allowed range.
func (c *Client) mockSearchItems(req SearchRequest) *SearchResult {
	kw := strings.ToUpper(req.Keywords)
	if len(kw) > 3 {
		kw = kw[:3]
	}

	items := make([]Item, 0, req.ItemCount)
	for i := 0; i < req.ItemCount; i++ {
		asin := fmt.Sprintf("B0%02dMOCK%s", i, kw)
		items = append(items, Item{
			ASIN:          asin,
			Title:         fmt.Sprintf("%s - Mock Product %d", req.Keywords, i+1),
			Price:         float64(1500 + i*500),
			Currency:      c.marketplace.Currency,
			Rating:        4.0 + float64(i)*0.1,
			ReviewCount:   50 + i*25,
			ImageURL:      fmt.Sprintf("https://via.placeholder.com/500?text=Product+%d", i+1),
			AffiliateURL:  c.affiliateURL(asin),
			DetailPageURL: fmt.Sprintf("https://www.%s/dp/%s", c.marketplace.Domain, asin),
			PrimeEligible: i%2 == 0,
		})
	}

	return &SearchResult{
		Items:        items,
		TotalResults: req.ItemCount,
		SearchURL:    fmt.Sprintf("https://www.%s/s?k=%s", c.marketplace.Domain, url.QueryEscape(req.Keywords)),
	}
}

// mockGetItems fabricates detailed lookups for the given item IDs.
func (c *Client) mockGetItems(itemIDs []string) *ItemsResult {
	items := make(map[string]Item, len(itemIDs))
	for _, asin := range itemIDs {
		items[asin] = Item{
			ASIN:            asin,
			Title:           "Mock Product " + asin,
			Price:           2999,
			Currency:        c.marketplace.Currency,
			Rating:          4.3,
			ReviewCount:     150,
			ImageURL:        "https://via.placeholder.com/500?text=" + url.QueryEscape(asin),
			AffiliateURL:    c.affiliateURL(asin),
			DetailPageURL:   fmt.Sprintf("https://www.%s/dp/%s", c.marketplace.Domain, asin),
			PrimeEligible:   true,
			Features:        []string{"Feature 1", "Feature 2", "Feature 3"},
			Brand:           "MockBrand",
			DeliveryMessage: "FREE",
			Availability:    "In Stock",
		}
	}
	return &ItemsResult{Items: items}
}
