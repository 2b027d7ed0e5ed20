package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/modehaus/lookbook-backend/internal/catalog"
	"github.com/modehaus/lookbook-backend/internal/clients/azopenai"
	"github.com/modehaus/lookbook-backend/internal/clients/eventhub"
	"github.com/modehaus/lookbook-backend/internal/outfit"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
	"github.com/modehaus/lookbook-backend/internal/storage"
)

const handlerCatalogJSON = `{
  "jacken": [
    {"id": "jacket-2", "name": "Wolljacke Camel", "price": 89.99, "originalPrice": 119.99, "color": "camel", "image": "wolljacke-camel.jpg"}
  ],
  "schuhe": [
    {"id": "shoe-1", "name": "Sneaker Weiss", "price": 79.99, "color": "weiss", "image": "sneaker-weiss.jpg"}
  ]
}`

type stubComposer struct {
	result []byte
	err    error
}

func (s *stubComposer) Compose(ctx context.Context, images []azopenai.SourceImage, instruction string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubPublisher struct {
	combinationErr error
	orderErr       error

	combinationCalls int
	orderCalls       int
	lastUserID       string
	lastCombination  string
	lastItems        []eventhub.Item
}

func (s *stubPublisher) PublishCombination(ctx context.Context, userID string, items []eventhub.Item) (string, error) {
	s.combinationCalls++
	s.lastUserID = userID
	s.lastItems = items
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	id := outfit.CombinationID(ids)
	if s.combinationErr != nil {
		return id, s.combinationErr
	}
	return id, nil
}

func (s *stubPublisher) PublishOrder(ctx context.Context, userID, combinationID string, items []eventhub.Item) (string, error) {
	s.orderCalls++
	s.lastUserID = userID
	s.lastCombination = combinationID
	s.lastItems = items
	orderID := uuid.NewString()
	if s.orderErr != nil {
		return orderID, s.orderErr
	}
	return orderID, nil
}

func (s *stubPublisher) Close(ctx context.Context) error { return nil }

type fixture struct {
	catalog   *catalog.Index
	store     *storage.LocalStore
	outfits   *outfit.Service
	publisher *stubPublisher
}

func newFixture(t *testing.T, composer azopenai.Composer) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	catalogFile := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(catalogFile, []byte(handlerCatalogJSON), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	productsDir := filepath.Join(dir, "products")
	for cat, file := range map[string]string{
		"jacken": "wolljacke-camel.jpg",
		"schuhe": "sneaker-weiss.jpg",
	} {
		if err := os.MkdirAll(filepath.Join(productsDir, cat), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(productsDir, cat, file), []byte("img"), 0o644); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}

	ix, err := catalog.Load(logger.NewNop(), catalogFile, productsDir)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	store, err := storage.NewLocalStore(logger.NewNop(), filepath.Join(dir, "generated"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	pub := &stubPublisher{}
	return &fixture{
		catalog:   ix,
		store:     store,
		outfits:   outfit.NewService(logger.NewNop(), ix, store, composer, nil),
		publisher: pub,
	}
}

func (f *fixture) router() *gin.Engine {
	r := gin.New()
	look := NewLookHandler(logger.NewNop(), f.outfits, f.publisher, f.store)
	cat := NewCatalogHandler(logger.NewNop(), f.catalog)
	order := NewOrderHandler(logger.NewNop(), f.catalog, f.publisher)

	r.GET("/api/categories", cat.GetCategories)
	r.GET("/api/products/:category", cat.GetProducts)
	r.GET("/api/product/:id", cat.GetProduct)
	r.POST("/api/generate", look.GenerateLook)
	r.POST("/api/combinations", order.PublishCombination)
	r.POST("/api/orders", order.PlaceOrder)
	r.GET("/generated/:filename", look.ServeArtifact)
	return r
}
