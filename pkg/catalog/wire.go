package catalog

// Wire types mirror the catalog API's nested JSON shape. Optional subtrees
// are pointers so absent sections stay distinguishable from zero values;
// shaping flattens them into the public Item struct.

const (
	searchPath = "/v1/search"
	itemsPath  = "/v1/items"
)

type wireSearchRequest struct {
	Keywords         string   `json:"keywords"`
	SearchIndex      string   `json:"searchIndex,omitempty"`
	ItemCount        int      `json:"itemCount"`
	MinPrice         int      `json:"minPrice,omitempty"`
	MaxPrice         int      `json:"maxPrice,omitempty"`
	MinSavingPercent int      `json:"minSavingPercent,omitempty"`
	DeliveryFlags    []string `json:"deliveryFlags,omitempty"`
	PartnerTag       string   `json:"partnerTag"`
}

type wireItemsRequest struct {
	ItemIDs    []string `json:"itemIds"`
	PartnerTag string   `json:"partnerTag"`
}

type wireSearchResponse struct {
	SearchResult *wireSearchResult `json:"searchResult,omitempty"`
	Errors       []wireError       `json:"errors,omitempty"`
}

type wireSearchResult struct {
	TotalResultCount int        `json:"totalResultCount"`
	SearchURL        string     `json:"searchUrl,omitempty"`
	Items            []wireItem `json:"items"`
}

type wireItemsResponse struct {
	ItemsResult *wireItemsResult `json:"itemsResult,omitempty"`
	Errors      []wireError      `json:"errors,omitempty"`
}

type wireItemsResult struct {
	Items []wireItem `json:"items"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wireItem struct {
	ASIN            string        `json:"asin"`
	DetailPageURL   string        `json:"detailPageUrl,omitempty"`
	ItemInfo        *wireItemInfo `json:"itemInfo,omitempty"`
	Images          *wireImages   `json:"images,omitempty"`
	Offers          *wireOffers   `json:"offers,omitempty"`
	CustomerReviews *wireReviews  `json:"customerReviews,omitempty"`
}

type wireItemInfo struct {
	Title      *wireDisplayValue `json:"title,omitempty"`
	ByLineInfo *wireByLineInfo   `json:"byLineInfo,omitempty"`
	Features   *wireFeatures     `json:"features,omitempty"`
}

type wireDisplayValue struct {
	DisplayValue string `json:"displayValue"`
}

type wireByLineInfo struct {
	Brand *wireDisplayValue `json:"brand,omitempty"`
}

type wireFeatures struct {
	DisplayValues []string `json:"displayValues"`
}

type wireImages struct {
	Primary *wireImageSet `json:"primary,omitempty"`
}

type wireImageSet struct {
	Large *wireImage `json:"large,omitempty"`
}

type wireImage struct {
	URL string `json:"url"`
}

type wireOffers struct {
	Listings []wireListing `json:"listings"`
}

type wireListing struct {
	Price        *wirePrice        `json:"price,omitempty"`
	DeliveryInfo *wireDeliveryInfo `json:"deliveryInfo,omitempty"`
	Availability *wireAvailability `json:"availability,omitempty"`
}

type wirePrice struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type wireDeliveryInfo struct {
	IsPrimeEligible bool                `json:"isPrimeEligible"`
	ShippingCharge  *wireShippingCharge `json:"shippingCharge,omitempty"`
}

type wireShippingCharge struct {
	DisplayAmount string `json:"displayAmount"`
}

type wireAvailability struct {
	Message string `json:"message"`
}

type wireReviews struct {
	StarRating float64 `json:"starRating"`
	Count      int     `json:"count"`
}

// shapeItem flattens a wire item into the list-level Item shape. Currency
// comes from the marketplace, not the wire, so items without offers still
// carry a sensible value.
func (c *Client) shapeItem(w wireItem) Item {
	item := Item{
		ASIN:          w.ASIN,
		Title:         "N/A",
		Currency:      c.marketplace.Currency,
		AffiliateURL:  c.affiliateURL(w.ASIN),
		DetailPageURL: w.DetailPageURL,
	}

	if w.ItemInfo != nil && w.ItemInfo.Title != nil {
		item.Title = w.ItemInfo.Title.DisplayValue
	}
	if w.Images != nil && w.Images.Primary != nil && w.Images.Primary.Large != nil {
		item.ImageURL = w.Images.Primary.Large.URL
	}
	if w.Offers != nil && len(w.Offers.Listings) > 0 {
		listing := w.Offers.Listings[0]
		if listing.Price != nil {
			item.Price = listing.Price.Amount
		}
		if listing.DeliveryInfo != nil {
			item.PrimeEligible = listing.DeliveryInfo.IsPrimeEligible
		}
	}
	if w.CustomerReviews != nil {
		item.Rating = w.CustomerReviews.StarRating
		item.ReviewCount = w.CustomerReviews.Count
	}

	return item
}

// shapeItemDetailed adds the detail-level fields on top of shapeItem.
func (c *Client) shapeItemDetailed(w wireItem) Item {
	item := c.shapeItem(w)

	if w.ItemInfo != nil {
		if w.ItemInfo.Features != nil {
			item.Features = w.ItemInfo.Features.DisplayValues
		}
		if w.ItemInfo.ByLineInfo != nil && w.ItemInfo.ByLineInfo.Brand != nil {
			item.Brand = w.ItemInfo.ByLineInfo.Brand.DisplayValue
		}
	}
	if w.Offers != nil && len(w.Offers.Listings) > 0 {
		listing := w.Offers.Listings[0]
		if listing.DeliveryInfo != nil {
			item.DeliveryMessage = "FREE"
			if listing.DeliveryInfo.ShippingCharge != nil {
				item.DeliveryMessage = listing.DeliveryInfo.ShippingCharge.DisplayAmount
			}
		}
		if listing.Availability != nil {
			item.Availability = listing.Availability.Message
		}
	}

	return item
}
