package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/meridian-retail/storefront/internal/awsx"
	"github.com/meridian-retail/storefront/internal/config"
	"github.com/meridian-retail/storefront/internal/orders"
	"github.com/meridian-retail/storefront/internal/promo"
)

// Processor consumes order-placed messages and drives the order lifecycle:
// PENDING -> PROCESSING -> COMPLETED, recording promo redemptions along the
// way. Deliveries for already-completed orders are dropped by the conditional
// status transitions; a delivery that finds the order still PROCESSING
// resumes fulfillment, since an earlier attempt may have died between the
// two transitions.
type Processor struct {
	orderStore *orders.Store
	promoStore *promo.Store
	log        zerolog.Logger
}

// NewProcessor wires the stores the worker needs.
func NewProcessor(client awsx.DynamoDBAPI, cfg config.Config, log zerolog.Logger) *Processor {
	return &Processor{
		orderStore: orders.NewStore(client, cfg.OrdersTable),
		promoStore: promo.NewStore(client, cfg.PromoCodesTable, cfg.PromoUsageTable),
		log:        log,
	}
}

// Handle receives an SQS batch event and processes each message. A returned
// error makes the runtime redeliver the batch; poisoned messages end up in
// the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error().Err(err).Str("message_id", rec.MessageId).Msg("worker error")
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg awsx.OrderPlacedMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log := p.log.With().Str("order_id", msg.OrderID).Logger()
	log.Info().Msg("processing order placed")

	order, err := p.orderStore.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("fetch order: %w", err)
	}
	if order == nil {
		// checkout persists the order before publishing, so this is a
		// poisoned message; let it reach the DLQ
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	err = p.orderStore.UpdateStatus(ctx, msg.OrderID, orders.StatusPending, orders.StatusProcessing)
	if errors.Is(err, orders.ErrStatusMismatch) {
		current, gerr := p.orderStore.Get(ctx, msg.OrderID)
		if gerr != nil {
			return fmt.Errorf("re-fetch order: %w", gerr)
		}
		switch current.Status {
		case orders.StatusCompleted, orders.StatusDelivered:
			log.Info().Msg("order already fulfilled, dropping duplicate")
			return nil
		case orders.StatusProcessing:
			// a previous attempt took the order but never completed it;
			// this redelivery finishes the job rather than dropping it
			log.Info().Msg("order stuck in PROCESSING, resuming fulfillment")
			return p.finishFulfillment(ctx, msg, log)
		case orders.StatusCancelled:
			log.Warn().Msg("order was cancelled, skipping fulfillment")
			return nil
		default:
			return fmt.Errorf("unexpected status for order %s: %s", msg.OrderID, current.Status)
		}
	}
	if err != nil {
		return fmt.Errorf("update status to PROCESSING: %w", err)
	}

	return p.finishFulfillment(ctx, msg, log)
}

func (p *Processor) finishFulfillment(ctx context.Context, msg awsx.OrderPlacedMessage, log zerolog.Logger) error {
	if msg.PromoCode != "" {
		if err := p.promoStore.IncrementUsage(ctx, msg.CustomerID, msg.PromoCode); err != nil {
			return fmt.Errorf("record promo redemption: %w", err)
		}
	}

	if err := p.orderStore.UpdateStatus(ctx, msg.OrderID, orders.StatusProcessing, orders.StatusCompleted); err != nil {
		return fmt.Errorf("update status to COMPLETED: %w", err)
	}

	log.Info().Msg("order completed")
	return nil
}
