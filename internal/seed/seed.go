// Package seed fills a catalog with reproducible bilingual sample products.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/pkg/slug"
)

// Defaults for Options.
const (
	DefaultCount = 10000
	DefaultBatch = 1000
	DefaultSeed  = 42
)

// foodShare is the fraction of products named after a known food; the rest
// get synthetic phrases.
const foodShare = 0.7

// Options control one seeding run.
type Options struct {
	Count int
	Batch int
	Seed  uint64
}

func (o Options) validate() error {
	if o.Count < 0 {
		return fmt.Errorf("count must not be negative: %d", o.Count)
	}
	if o.Batch <= 0 {
		return fmt.Errorf("batch must be positive: %d", o.Batch)
	}
	return nil
}

// Result summarizes a run.
type Result struct {
	Categories int
	Brands     int
	Products   int
}

// Seeder generates products and writes them in batches.
type Seeder struct {
	products   repository.ProductRepository
	brands     repository.BrandRepository
	categories repository.CategoryRepository
	logger     *slog.Logger

	rng     *rand.Rand
	barcode func() string
}

// New creates a Seeder over the given repositories.
func New(products repository.ProductRepository, brands repository.BrandRepository, categories repository.CategoryRepository, logger *slog.Logger) *Seeder {
	return &Seeder{
		products:   products,
		brands:     brands,
		categories: categories,
		logger:     logger,
	}
}

// Run get-or-creates the sample taxonomy and inserts opts.Count products.
// The same Seed produces the same products, barcode collisions with
// existing rows aside.
func (s *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	s.rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	if s.barcode == nil {
		s.barcode = s.ean13
	}

	categoryIDs, err := s.seedCategories(ctx)
	if err != nil {
		return Result{}, err
	}
	brandIDs, err := s.seedBrands(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Categories: len(categoryIDs), Brands: len(brandIDs)}

	used := make(map[string]struct{}, opts.Count)
	for res.Products < opts.Count {
		n := min(opts.Batch, opts.Count-res.Products)

		barcodes, err := s.uniqueBarcodes(ctx, n, used)
		if err != nil {
			return res, err
		}

		batch := make([]domain.Product, n)
		for i := range batch {
			batch[i] = s.product(barcodes[i], brandIDs, categoryIDs)
		}

		inserted, err := s.products.BulkCreate(ctx, batch)
		if err != nil {
			return res, fmt.Errorf("insert batch at %d: %w", res.Products, err)
		}
		res.Products += inserted

		s.logger.InfoContext(ctx, "products created",
			slog.Int("created", res.Products),
			slog.Int("total", opts.Count),
		)
	}

	return res, nil
}

func (s *Seeder) seedCategories(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		got, _, err := s.categories.GetOrCreate(ctx, &domain.Category{NameEn: c.en, NameAr: c.ar, Slug: slug.Generate(c.en)})
		if err != nil {
			return nil, fmt.Errorf("get or create category %q: %w", c.en, err)
		}
		ids = append(ids, got.ID)
	}
	return ids, nil
}

func (s *Seeder) seedBrands(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(brands))
	for _, b := range brands {
		got, _, err := s.brands.GetOrCreate(ctx, &domain.Brand{NameEn: b.en, NameAr: b.ar, Slug: slug.Generate(b.en)})
		if err != nil {
			return nil, fmt.Errorf("get or create brand %q: %w", b.en, err)
		}
		ids = append(ids, got.ID)
	}
	return ids, nil
}

// maxBarcodeRounds bounds the retries against barcodes already stored.
const maxBarcodeRounds = 100

// uniqueBarcodes returns n barcodes that are neither in used nor stored,
// and adds them to used.
func (s *Seeder) uniqueBarcodes(ctx context.Context, n int, used map[string]struct{}) ([]string, error) {
	out := make([]string, 0, n)
	for round := 0; len(out) < n; round++ {
		if round == maxBarcodeRounds {
			return nil, errors.New("could not generate unique barcodes")
		}

		candidates := make([]string, 0, n-len(out))
		for len(candidates) < cap(candidates) {
			b := s.barcode()
			if _, dup := used[b]; dup {
				continue
			}
			used[b] = struct{}{}
			candidates = append(candidates, b)
		}

		taken, err := s.products.ExistingBarcodes(ctx, candidates)
		if err != nil {
			return nil, fmt.Errorf("check existing barcodes: %w", err)
		}
		for _, b := range candidates {
			if _, t := taken[b]; !t {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (s *Seeder) product(barcode string, brandIDs, categoryIDs []int64) domain.Product {
	var nameEn, nameAr string
	if s.rng.Float64() < foodShare {
		food := foods[s.rng.IntN(len(foods))]
		nameEn, nameAr = food.en, food.ar
		if s.rng.Float64() < 0.5 {
			p := prefixes[s.rng.IntN(len(prefixes))]
			nameEn, nameAr = p.en+" "+nameEn, p.ar+" "+nameAr
		}
	} else {
		nameEn = s.pick(phraseAdjectivesEn) + " " + s.pick(phraseAdjectivesEn) + " " + s.pick(phraseNounsEn)
		nameAr = s.words(wordsAr, 2+s.rng.IntN(2))
	}

	brandID := brandIDs[s.rng.IntN(len(brandIDs))]
	categoryID := categoryIDs[s.rng.IntN(len(categoryIDs))]
	calories := float64(s.rng.IntN(501))
	protein := s.tenths(30)
	carbs := s.tenths(100)
	fat := s.tenths(50)

	return domain.Product{
		NameEn:        nameEn,
		NameAr:        nameAr,
		DescriptionEn: s.sentence(wordsEn, 8+s.rng.IntN(8)),
		DescriptionAr: s.words(wordsAr, 6+s.rng.IntN(6)) + ".",
		Barcode:       &barcode,
		BrandID:       &brandID,
		CategoryID:    &categoryID,
		Nutrition: domain.Nutrition{
			Calories: &calories,
			Protein:  &protein,
			Carbs:    &carbs,
			Fat:      &fat,
		},
	}
}

func (s *Seeder) pick(words []string) string {
	return words[s.rng.IntN(len(words))]
}

func (s *Seeder) words(vocab []string, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.pick(vocab)
	}
	return strings.Join(out, " ")
}

func (s *Seeder) sentence(vocab []string, n int) string {
	text := s.words(vocab, n)
	return strings.ToUpper(text[:1]) + text[1:] + "."
}

// tenths returns a uniform value in [0, upper] rounded to one decimal.
func (s *Seeder) tenths(upper float64) float64 {
	return math.Round(s.rng.Float64()*upper*10) / 10
}

// ean13 returns a random EAN-13 with a valid check digit.
func (s *Seeder) ean13() string {
	var digits [12]byte
	for i := range digits {
		digits[i] = byte(s.rng.IntN(10))
	}
	return EAN13(digits)
}

// EAN13 appends the check digit to a 12-digit body.
func EAN13(body [12]byte) string {
	sum := 0
	for i, d := range body {
		if i%2 == 0 {
			sum += int(d)
		} else {
			sum += 3 * int(d)
		}
	}
	check := (10 - sum%10) % 10

	var b strings.Builder
	b.Grow(13)
	for _, d := range body {
		b.WriteByte('0' + d)
	}
	b.WriteByte('0' + byte(check))
	return b.String()
}
