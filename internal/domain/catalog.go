package domain

import "time"

// Brand is a product manufacturer, addressed by its unique slug.
type Brand struct {
	ID        int64     `json:"id"`
	NameEn    string    `json:"name_en"`
	NameAr    string    `json:"name_ar"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Category groups products, addressed by its unique slug.
type Category struct {
	ID        int64     `json:"id"`
	NameEn    string    `json:"name_en"`
	NameAr    string    `json:"name_ar"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Nutrition facts per serving. Any fact may be unknown.
type Nutrition struct {
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fat      *float64 `json:"fat"`
}

// Product is a catalog item described in English and Arabic. Brand and
// Category are populated on reads; writes use BrandID and CategoryID.
type Product struct {
	ID            int64     `json:"id"`
	NameEn        string    `json:"name_en"`
	NameAr        string    `json:"name_ar"`
	DescriptionEn string    `json:"description_en"`
	DescriptionAr string    `json:"description_ar"`
	Barcode       *string   `json:"barcode"`
	BrandID       *int64    `json:"brand_id"`
	CategoryID    *int64    `json:"category_id"`
	Brand         *Brand    `json:"brand"`
	Category      *Category `json:"category"`
	Nutrition
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProductInput holds the fields accepted when creating a product.
type CreateProductInput struct {
	NameEn        string   `json:"name_en" validate:"required,max=255"`
	NameAr        string   `json:"name_ar" validate:"required,max=255"`
	DescriptionEn string   `json:"description_en"`
	DescriptionAr string   `json:"description_ar"`
	Barcode       *string  `json:"barcode" validate:"omitempty,max=100"`
	BrandID       *int64   `json:"brand_id" validate:"omitempty,gt=0"`
	CategoryID    *int64   `json:"category_id" validate:"omitempty,gt=0"`
	Calories      *float64 `json:"calories" validate:"omitempty,gte=0"`
	Protein       *float64 `json:"protein" validate:"omitempty,gte=0"`
	Carbs         *float64 `json:"carbs" validate:"omitempty,gte=0"`
	Fat           *float64 `json:"fat" validate:"omitempty,gte=0"`
}

// UpdateProductInput holds a partial product update. Nil fields are left
// unchanged.
type UpdateProductInput struct {
	NameEn        *string  `json:"name_en" validate:"omitempty,min=1,max=255"`
	NameAr        *string  `json:"name_ar" validate:"omitempty,min=1,max=255"`
	DescriptionEn *string  `json:"description_en"`
	DescriptionAr *string  `json:"description_ar"`
	Barcode       *string  `json:"barcode" validate:"omitempty,max=100"`
	BrandID       *int64   `json:"brand_id" validate:"omitempty,gt=0"`
	CategoryID    *int64   `json:"category_id" validate:"omitempty,gt=0"`
	Calories      *float64 `json:"calories" validate:"omitempty,gte=0"`
	Protein       *float64 `json:"protein" validate:"omitempty,gte=0"`
	Carbs         *float64 `json:"carbs" validate:"omitempty,gte=0"`
	Fat           *float64 `json:"fat" validate:"omitempty,gte=0"`
}

// Apply copies the non-nil fields of in onto p.
func (in UpdateProductInput) Apply(p *Product) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&p.NameEn, in.NameEn)
	setString(&p.NameAr, in.NameAr)
	setString(&p.DescriptionEn, in.DescriptionEn)
	setString(&p.DescriptionAr, in.DescriptionAr)

	if in.Barcode != nil {
		if *in.Barcode == "" {
			p.Barcode = nil
		} else {
			p.Barcode = in.Barcode
		}
	}
	if in.BrandID != nil {
		p.BrandID = in.BrandID
	}
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	if in.Calories != nil {
		p.Calories = in.Calories
	}
	if in.Protein != nil {
		p.Protein = in.Protein
	}
	if in.Carbs != nil {
		p.Carbs = in.Carbs
	}
	if in.Fat != nil {
		p.Fat = in.Fat
	}
}

// NewProduct builds a Product from a create request. Empty barcodes are
// stored as NULL so they never collide with each other.
func NewProduct(in CreateProductInput) *Product {
	p := &Product{
		NameEn:        in.NameEn,
		NameAr:        in.NameAr,
		DescriptionEn: in.DescriptionEn,
		DescriptionAr: in.DescriptionAr,
		BrandID:       in.BrandID,
		CategoryID:    in.CategoryID,
		Nutrition: Nutrition{
			Calories: in.Calories,
			Protein:  in.Protein,
			Carbs:    in.Carbs,
			Fat:      in.Fat,
		},
	}
	if in.Barcode != nil && *in.Barcode != "" {
		p.Barcode = in.Barcode
	}
	return p
}

// TaxonomyInput creates or finds a brand or category by slug.
type TaxonomyInput struct {
	NameEn string `json:"name_en" validate:"required,max=255"`
	NameAr string `json:"name_ar" validate:"required,max=255"`
	Slug   string `json:"slug" validate:"omitempty,max=255,slug"`
}
