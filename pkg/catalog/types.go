package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Cache namespaces used by the client. Namespaced keys allow scoped
// clearing (e.g. the nightly search sweep) without touching product data.
const (
	NamespaceSearch   = "search"
	NamespaceProducts = "products"
	NamespaceBrowse   = "browse"
)

// Default cache TTLs per namespace. Search results churn fastest, product
// detail is stabler, and browse-node data barely moves.
const (
	SearchTTL  = 1 * time.Hour
	ProductTTL = 2 * time.Hour
	BrowseTTL  = 24 * time.Hour
)

// maxItemsPerCall is the upstream API limit for one GetItems batch.
const maxItemsPerCall = 10

// SearchRequest describes one catalog search. Zero-valued optional filters
// are omitted from the upstream request.
type SearchRequest struct {
	// Keywords is the free-text search query.
	Keywords string

	// SearchIndex narrows the search to a category ("Electronics",
	// "Books", ...). Empty means all categories.
	SearchIndex string

	// ItemCount is the number of results to return (1-10, default 10).
	ItemCount int

	// MinPrice and MaxPrice filter by price, in the marketplace's minor
	// currency unit (cents, paise).
	MinPrice int
	MaxPrice int

	// MinSavingPercent filters to items discounted at least this much.
	MinSavingPercent int

	// DeliveryFlags filters by delivery program ("Prime", "FreeShipping").
	DeliveryFlags []string
}

// cacheKey returns the deterministic raw cache key for this request.
// Delivery flags are sorted so logically equal requests collide.
func (r SearchRequest) cacheKey() string {
	flags := append([]string(nil), r.DeliveryFlags...)
	sort.Strings(flags)

	return fmt.Sprintf("kw=%s:idx=%s:n=%d:min=%d:max=%d:save=%d:flags=%s",
		r.Keywords, r.SearchIndex, r.ItemCount,
		r.MinPrice, r.MaxPrice, r.MinSavingPercent,
		strings.Join(flags, ","))
}

// itemKey returns the raw cache key for a single product.
func itemKey(asin string) string {
	return "item:" + asin
}

// Item is one catalog product, flattened from the upstream wire shape.
type Item struct {
	ASIN          string  `json:"asin"`
	Title         string  `json:"title"`
	Price         float64 `json:"price,omitempty"`
	Currency      string  `json:"currency"`
	Rating        float64 `json:"rating,omitempty"`
	ReviewCount   int     `json:"review_count"`
	ImageURL      string  `json:"image_url,omitempty"`
	AffiliateURL  string  `json:"affiliate_url"`
	DetailPageURL string  `json:"detail_page_url,omitempty"`
	PrimeEligible bool    `json:"prime_eligible"`

	// Detailed fields, populated by GetItems only.
	Features        []string `json:"features,omitempty"`
	Brand           string   `json:"brand,omitempty"`
	DeliveryMessage string   `json:"delivery_message,omitempty"`
	Availability    string   `json:"availability,omitempty"`
}

// SearchResult is the shaped response of SearchItems.
type SearchResult struct {
	Items        []Item `json:"items"`
	TotalResults int    `json:"total_results"`
	SearchURL    string `json:"search_url,omitempty"`
}

// ItemsResult is the shaped response of GetItems, keyed by ASIN.
type ItemsResult struct {
	Items map[string]Item `json:"items"`
}
