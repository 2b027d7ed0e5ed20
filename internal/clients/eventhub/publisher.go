package eventhub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	azeventhubs "github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs/v2"
	"github.com/google/uuid"

	"github.com/modehaus/lookbook-backend/internal/outfit"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

const (
	streamCombinations = "combinations"
	streamSales        = "sales"
)

// Item is the product payload carried by both event kinds.
type Item struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Color     string  `json:"color"`
}

type combinationEvent struct {
	CombinationID string `json:"combination_id"`
	UserID        string `json:"user_id"`
	Items         []Item `json:"items"`
}

type orderEvent struct {
	OrderID       string `json:"order_id"`
	CombinationID string `json:"combination_id"`
	UserID        string `json:"user_id"`
	Items         []Item `json:"items"`
}

// PublishError reports a failed event publish. Handlers convert it into a
// warning; it never aborts the image flow.
type PublishError struct {
	Stream string
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s stream: %v", e.Stream, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Publisher emits combination and order analytics events to two independent
// downstream streams, correlated by the combination id.
type Publisher interface {
	// PublishCombination derives the combination id from the items and emits a
	// combination event. The returned id is always self-derived, never
	// caller-supplied, so the combination stream stays authoritative.
	PublishCombination(ctx context.Context, userID string, items []Item) (string, error)
	// PublishOrder emits an order event. When combinationID is empty it is
	// derived from the order's own items with the same identity function, so
	// both streams correlate even if the combination event was never sent.
	// The order id is generated locally and returned even when the publish
	// fails.
	PublishOrder(ctx context.Context, userID, combinationID string, items []Item) (string, error)
	Close(ctx context.Context) error
}

// streamSender abstracts one outbound stream so tests can observe payloads
// without a live hub.
type streamSender interface {
	Send(ctx context.Context, payload []byte) error
	Close(ctx context.Context) error
}

type hubSender struct {
	producer *azeventhubs.ProducerClient
}

func newHubSender(connectionString string) (*hubSender, error) {
	producer, err := azeventhubs.NewProducerClientFromConnectionString(connectionString, "", nil)
	if err != nil {
		return nil, err
	}
	return &hubSender{producer: producer}, nil
}

func (s *hubSender) Send(ctx context.Context, payload []byte) error {
	batch, err := s.producer.NewEventDataBatch(ctx, nil)
	if err != nil {
		return err
	}
	if err := batch.AddEventData(&azeventhubs.EventData{Body: payload}, nil); err != nil {
		return err
	}
	return s.producer.SendEventDataBatch(ctx, batch, nil)
}

func (s *hubSender) Close(ctx context.Context) error {
	return s.producer.Close(ctx)
}

type publisher struct {
	log          *logger.Logger
	combinations streamSender
	sales        streamSender
}

// NewPublisher builds the producers for both streams up front, from their
// per-stream connection strings. A stream without a configured connection
// string stays disabled; publishing to it fails with a PublishError.
func NewPublisher(log *logger.Logger) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	log = log.With("service", "EventPublisher")

	var combinations, sales streamSender

	if conn := strings.TrimSpace(os.Getenv("FABRIC_EH_COMBINATIONS_CONNECTION_STRING")); conn != "" {
		s, err := newHubSender(conn)
		if err != nil {
			return nil, fmt.Errorf("init combinations producer: %w", err)
		}
		combinations = s
	} else {
		log.Warn("Combinations stream not configured, combination events disabled")
	}

	if conn := strings.TrimSpace(os.Getenv("FABRIC_EH_SALES_CONNECTION_STRING")); conn != "" {
		s, err := newHubSender(conn)
		if err != nil {
			if combinations != nil {
				_ = combinations.Close(context.Background())
			}
			return nil, fmt.Errorf("init sales producer: %w", err)
		}
		sales = s
	} else {
		log.Warn("Sales stream not configured, order events disabled")
	}

	return &publisher{log: log, combinations: combinations, sales: sales}, nil
}

func newPublisherWithSenders(log *logger.Logger, combinations, sales streamSender) *publisher {
	return &publisher{log: log, combinations: combinations, sales: sales}
}

func productIDs(items []Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (p *publisher) PublishCombination(ctx context.Context, userID string, items []Item) (string, error) {
	combinationID := outfit.CombinationID(productIDs(items))

	if p.combinations == nil {
		return combinationID, &PublishError{Stream: streamCombinations, Err: fmt.Errorf("stream not configured")}
	}

	payload, err := json.Marshal(combinationEvent{
		CombinationID: combinationID,
		UserID:        userID,
		Items:         items,
	})
	if err != nil {
		return combinationID, &PublishError{Stream: streamCombinations, Err: err}
	}
	if err := p.combinations.Send(ctx, payload); err != nil {
		return combinationID, &PublishError{Stream: streamCombinations, Err: err}
	}

	p.log.Info("Combination event published", "combination_id", combinationID, "items", len(items))
	return combinationID, nil
}

func (p *publisher) PublishOrder(ctx context.Context, userID, combinationID string, items []Item) (string, error) {
	orderID := uuid.NewString()
	if strings.TrimSpace(combinationID) == "" {
		combinationID = outfit.CombinationID(productIDs(items))
	}

	if p.sales == nil {
		return orderID, &PublishError{Stream: streamSales, Err: fmt.Errorf("stream not configured")}
	}

	payload, err := json.Marshal(orderEvent{
		OrderID:       orderID,
		CombinationID: combinationID,
		UserID:        userID,
		Items:         items,
	})
	if err != nil {
		return orderID, &PublishError{Stream: streamSales, Err: err}
	}
	if err := p.sales.Send(ctx, payload); err != nil {
		return orderID, &PublishError{Stream: streamSales, Err: err}
	}

	p.log.Info("Order event published", "order_id", orderID, "combination_id", combinationID, "items", len(items))
	return orderID, nil
}

func (p *publisher) Close(ctx context.Context) error {
	var firstErr error
	if p.sales != nil {
		if err := p.sales.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if p.combinations != nil {
		if err := p.combinations.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
