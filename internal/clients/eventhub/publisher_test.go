package eventhub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/modehaus/lookbook-backend/internal/outfit"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

type captureSender struct {
	payloads [][]byte
	sendErr  error
	closed   bool
}

func (s *captureSender) Send(ctx context.Context, payload []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *captureSender) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

func testItems() []Item {
	return []Item{
		{ProductID: "shoe-1", Name: "Sneaker Weiss", Price: 79.99, Color: "weiss"},
		{ProductID: "jacket-2", Name: "Wolljacke Camel", Price: 89.99, Color: "camel"},
	}
}

func TestPublishCombinationDerivesID(t *testing.T) {
	t.Parallel()
	combinations := &captureSender{}
	p := newPublisherWithSenders(logger.NewNop(), combinations, nil)

	id, err := p.PublishCombination(context.Background(), "user-1", testItems())
	if err != nil {
		t.Fatalf("publish combination: %v", err)
	}
	want := outfit.CombinationID([]string{"shoe-1", "jacket-2"})
	if id != want {
		t.Fatalf("combination id: got=%q want=%q", id, want)
	}

	if len(combinations.payloads) != 1 {
		t.Fatalf("payloads: got=%d want=1", len(combinations.payloads))
	}
	var evt combinationEvent
	if err := json.Unmarshal(combinations.payloads[0], &evt); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if evt.CombinationID != want || evt.UserID != "user-1" || len(evt.Items) != 2 {
		t.Fatalf("event payload: %+v", evt)
	}
	if evt.Items[0].ProductID != "shoe-1" || evt.Items[0].Price != 79.99 {
		t.Fatalf("item payload: %+v", evt.Items[0])
	}
}

func TestPublishOrderWithoutIDCorrelatesWithCombination(t *testing.T) {
	t.Parallel()
	combinations := &captureSender{}
	sales := &captureSender{}
	p := newPublisherWithSenders(logger.NewNop(), combinations, sales)
	ctx := context.Background()

	combID, err := p.PublishCombination(ctx, "user-1", testItems())
	if err != nil {
		t.Fatalf("publish combination: %v", err)
	}

	// Same items, different order, no combination id supplied.
	reversed := []Item{testItems()[1], testItems()[0]}
	orderID, err := p.PublishOrder(ctx, "user-1", "", reversed)
	if err != nil {
		t.Fatalf("publish order: %v", err)
	}
	if _, err := uuid.Parse(orderID); err != nil {
		t.Fatalf("order id not a uuid: %q", orderID)
	}

	var evt orderEvent
	if err := json.Unmarshal(sales.payloads[0], &evt); err != nil {
		t.Fatalf("unmarshal order payload: %v", err)
	}
	if evt.CombinationID != combID {
		t.Fatalf("order correlation: got=%q want=%q", evt.CombinationID, combID)
	}
	if evt.OrderID != orderID {
		t.Fatalf("order id in payload: got=%q want=%q", evt.OrderID, orderID)
	}
}

func TestPublishOrderKeepsSuppliedCombinationID(t *testing.T) {
	t.Parallel()
	sales := &captureSender{}
	p := newPublisherWithSenders(logger.NewNop(), nil, sales)

	_, err := p.PublishOrder(context.Background(), "user-1", "given-id", testItems())
	if err != nil {
		t.Fatalf("publish order: %v", err)
	}
	var evt orderEvent
	if err := json.Unmarshal(sales.payloads[0], &evt); err != nil {
		t.Fatalf("unmarshal order payload: %v", err)
	}
	if evt.CombinationID != "given-id" {
		t.Fatalf("combination id: got=%q want=%q", evt.CombinationID, "given-id")
	}
}

func TestPublishOrderUnconfiguredStreamStillReturnsOrderID(t *testing.T) {
	t.Parallel()
	p := newPublisherWithSenders(logger.NewNop(), nil, nil)

	orderID, err := p.PublishOrder(context.Background(), "user-1", "", testItems())
	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got=%v", err)
	}
	if pubErr.Stream != streamSales {
		t.Fatalf("stream: got=%q want=%q", pubErr.Stream, streamSales)
	}
	if _, parseErr := uuid.Parse(orderID); parseErr != nil {
		t.Fatalf("order id must be returned despite failure, got=%q", orderID)
	}
}

func TestPublishCombinationTransportFailure(t *testing.T) {
	t.Parallel()
	combinations := &captureSender{sendErr: errors.New("amqp detach")}
	p := newPublisherWithSenders(logger.NewNop(), combinations, nil)

	id, err := p.PublishCombination(context.Background(), "user-1", testItems())
	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got=%v", err)
	}
	if id == "" {
		t.Fatalf("combination id must be derived despite failure")
	}
}

func TestOrderIDsAreUniquePerPublish(t *testing.T) {
	t.Parallel()
	sales := &captureSender{}
	p := newPublisherWithSenders(logger.NewNop(), nil, sales)
	ctx := context.Background()

	first, err := p.PublishOrder(ctx, "user-1", "", testItems())
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	second, err := p.PublishOrder(ctx, "user-1", "", testItems())
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if first == second {
		t.Fatalf("order ids must be random per publish, both %q", first)
	}
}

func TestCloseClosesBothStreams(t *testing.T) {
	t.Parallel()
	combinations := &captureSender{}
	sales := &captureSender{}
	p := newPublisherWithSenders(logger.NewNop(), combinations, sales)

	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !combinations.closed || !sales.closed {
		t.Fatalf("both streams must be closed: combinations=%v sales=%v", combinations.closed, sales.closed)
	}
}
