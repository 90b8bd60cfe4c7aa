package domain

// SearchRequest is the typed form of a product search. Query is the raw
// user text; Category and Brand are slugs. Zero Page/PageSize mean the
// defaults.
type SearchRequest struct {
	Query       string
	Category    string
	Brand       string
	MinCalories *float64
	MaxCalories *float64
	Page        int
	PageSize    int
}

// Signals are the raw per-row relevance measurements computed by a store.
// Full-text ranks and trigram similarities lie in [0, 1].
type Signals struct {
	FullTextEn  float64 `json:"ft_en"`
	FullTextAr  float64 `json:"ft_ar"`
	FuzzyNameEn float64 `json:"fuzzy_name_en"`
	FuzzyNameAr float64 `json:"fuzzy_name_ar"`
	FuzzyDescEn float64 `json:"fuzzy_desc_en"`
	FuzzyDescAr float64 `json:"fuzzy_desc_ar"`
	SubstringEn bool    `json:"substring_en"`
	SubstringAr bool    `json:"substring_ar"`
}

// Candidate is a product ID with its signals, before combination.
type Candidate struct {
	ProductID int64
	Signals   Signals
}

// Scored is a candidate that passed inclusion, with its combined relevance.
type Scored struct {
	ProductID int64
	Relevance float64
	Signals   Signals
}

// SearchResult is one product in a result page.
type SearchResult struct {
	Product
	Relevance float64 `json:"relevance"`
}

// SearchPage is one page of ordered results. Count is the total number of
// matching products across all pages.
type SearchPage struct {
	Count    int            `json:"count"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Results  []SearchResult `json:"results"`
}

// EmptyPage returns a page with no results.
func EmptyPage(page, pageSize int) *SearchPage {
	return &SearchPage{Page: page, PageSize: pageSize, Results: []SearchResult{}}
}
