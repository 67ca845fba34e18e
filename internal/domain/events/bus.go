// Package events provides the in-process notification bus for
// cross-component refresh signals. Subscribers register explicitly;
// there are no ambient global events.
package events

import (
	"context"
	"sync"

	"padihub/internal/core/id"
)

// TransactionCompleted is published when a weighing session finalizes
// into a receipt, and when a receipt's financials are recomputed.
type TransactionCompleted struct {
	TransactionID id.ID
	Number        string
	Type          string
}

// SaleAssembled is published after the split engine backs a sale with
// purchase receipts.
type SaleAssembled struct {
	SaleID       id.ID
	ReceiptIDs   []id.ID
	SplitCreated int
}

// SeasonChanged is published when the active season switches.
type SeasonChanged struct {
	SeasonID id.ID
	Name     string
}

// Bus is a lightweight in-process event bus. Handlers run synchronously
// on the publisher's goroutine; a handler error stops delivery and is
// returned to the publisher.
type Bus struct {
	mu sync.RWMutex

	transactionHandlers []func(context.Context, TransactionCompleted) error
	saleHandlers        []func(context.Context, SaleAssembled) error
	seasonHandlers      []func(context.Context, SeasonChanged) error
}

// NewBus constructs a new bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeTransactionCompleted registers a handler for TransactionCompleted.
func (b *Bus) SubscribeTransactionCompleted(handler func(context.Context, TransactionCompleted) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transactionHandlers = append(b.transactionHandlers, handler)
}

// PublishTransactionCompleted publishes a TransactionCompleted event.
func (b *Bus) PublishTransactionCompleted(ctx context.Context, event TransactionCompleted) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, TransactionCompleted) error(nil), b.transactionHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeSaleAssembled registers a handler for SaleAssembled.
func (b *Bus) SubscribeSaleAssembled(handler func(context.Context, SaleAssembled) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saleHandlers = append(b.saleHandlers, handler)
}

// PublishSaleAssembled publishes a SaleAssembled event.
func (b *Bus) PublishSaleAssembled(ctx context.Context, event SaleAssembled) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, SaleAssembled) error(nil), b.saleHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeSeasonChanged registers a handler for SeasonChanged.
func (b *Bus) SubscribeSeasonChanged(handler func(context.Context, SeasonChanged) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seasonHandlers = append(b.seasonHandlers, handler)
}

// PublishSeasonChanged publishes a SeasonChanged event.
func (b *Bus) PublishSeasonChanged(ctx context.Context, event SeasonChanged) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, SeasonChanged) error(nil), b.seasonHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
