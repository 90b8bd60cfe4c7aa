package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/catalog-search/internal/domain"
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
)

// Event types, also used as the action part of the topic name.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Aggregate types.
const (
	AggregateProduct  = "product"
	AggregateBrand    = "brand"
	AggregateCategory = "category"
)

// SourceCatalogSearch identifies events produced by this service.
const SourceCatalogSearch = "catalog-search"

// Topics lists every topic the service publishes, which is also what the
// cache invalidation consumer subscribes to.
func Topics() []string {
	return []string{
		pkgkafka.Topic(AggregateProduct, ActionCreated),
		pkgkafka.Topic(AggregateProduct, ActionUpdated),
		pkgkafka.Topic(AggregateProduct, ActionDeleted),
		pkgkafka.Topic(AggregateBrand, ActionDeleted),
		pkgkafka.Topic(AggregateCategory, ActionDeleted),
	}
}

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID         int64   `json:"id"`
	NameEn     string  `json:"name_en"`
	NameAr     string  `json:"name_ar"`
	Barcode    *string `json:"barcode,omitempty"`
	BrandID    *int64  `json:"brand_id,omitempty"`
	CategoryID *int64  `json:"category_id,omitempty"`
}

// DeletedData is the payload of every *.deleted event.
type DeletedData struct {
	ID int64 `json:"id"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new catalog event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, AggregateProduct, ActionCreated, product.ID, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, AggregateProduct, ActionUpdated, product.ID, productData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, AggregateProduct, ActionDeleted, id, DeletedData{ID: id})
}

// PublishBrandDeleted publishes a brand.deleted event.
func (p *Producer) PublishBrandDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, AggregateBrand, ActionDeleted, id, DeletedData{ID: id})
}

// PublishCategoryDeleted publishes a category.deleted event.
func (p *Producer) PublishCategoryDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, AggregateCategory, ActionDeleted, id, DeletedData{ID: id})
}

func (p *Producer) publish(ctx context.Context, aggregate, action string, id int64, data any) error {
	eventType := aggregate + "." + action
	evt, err := pkgkafka.NewEvent(ctx, eventType, aggregate, strconv.FormatInt(id, 10), SourceCatalogSearch, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	return p.kafka.Publish(ctx, pkgkafka.Topic(aggregate, action), evt)
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:         p.ID,
		NameEn:     p.NameEn,
		NameAr:     p.NameAr,
		Barcode:    p.Barcode,
		BrandID:    p.BrandID,
		CategoryID: p.CategoryID,
	}
}

// Nop discards every event. It stands in when Kafka is disabled.
type Nop struct{}

func (Nop) PublishProductCreated(context.Context, *domain.Product) error { return nil }
func (Nop) PublishProductUpdated(context.Context, *domain.Product) error { return nil }
func (Nop) PublishProductDeleted(context.Context, int64) error           { return nil }
func (Nop) PublishBrandDeleted(context.Context, int64) error             { return nil }
func (Nop) PublishCategoryDeleted(context.Context, int64) error          { return nil }
