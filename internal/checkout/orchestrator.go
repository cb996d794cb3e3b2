package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meridian-retail/storefront/internal/cart"
	"github.com/meridian-retail/storefront/internal/catalog"
	"github.com/meridian-retail/storefront/internal/inventory"
	"github.com/meridian-retail/storefront/internal/metrics"
	"github.com/meridian-retail/storefront/internal/orders"
	"github.com/meridian-retail/storefront/internal/payment"
	"github.com/meridian-retail/storefront/internal/pricing"
	"github.com/meridian-retail/storefront/internal/promo"
)

// The saga consumes narrow slices of its collaborators so tests can count
// invocations without DynamoDB.

type stockValidator interface {
	Validate(ctx context.Context, items []cart.LineItem) (*inventory.ValidationResult, error)
}

type stockCommitter interface {
	Commit(ctx context.Context, items []cart.LineItem, locs map[string]catalog.Location) (*inventory.CommitResult, error)
}

type stockCompensator interface {
	Revert(ctx context.Context, items []cart.LineItem, locs map[string]catalog.Location) (*inventory.RevertResult, error)
}

type promoChecker interface {
	Validate(ctx context.Context, code, customerID string, promotionalOnly bool) (*promo.Result, error)
}

type orderSink interface {
	Create(ctx context.Context, order orders.Order) error
}

// Deps wires the saga's collaborators.
type Deps struct {
	Stock       stockValidator
	Committer   stockCommitter
	Compensator stockCompensator
	Promo       promoChecker
	Orders      orderSink
	Processors  map[payment.Method]payment.Processor
	Rates       pricing.Rates
	Currency    string
	Metrics     *metrics.Emitter // nil disables metrics
	Log         zerolog.Logger
}

// Saga coordinates one checkout: validate, charge, decrement stock, persist
// the order, and restore stock if persistence fails after the decrement.
type Saga struct {
	deps     Deps
	validate *validator.Validate
	newID    func() string
}

// New returns a Saga. Currency defaults to USD.
func New(deps Deps) *Saga {
	if deps.Currency == "" {
		deps.Currency = "USD"
	}
	return &Saga{
		deps:     deps,
		validate: validator.New(),
		newID:    uuid.NewString,
	}
}

// advance asserts the edge is legal before taking it. Every edge here is
// hard-coded, so a bad one is a programming error, not a runtime condition.
func advance(state *State, next State) {
	if !state.CanTransitionTo(next) {
		panic(fmt.Sprintf("checkout: illegal transition %s -> %s", *state, next))
	}
	*state = next
}

// Checkout runs the saga to completion. The returned Result always carries
// the furthest Outcome reached, even when an error is also returned; the
// error is one of the types in errors.go, or an unwrapped infrastructure
// error when a store read failed mid-validation.
func (s *Saga) Checkout(ctx context.Context, req *Request) (*Result, error) {
	res := &Result{Outcome: OutcomeNotStarted}
	state := StateNotStarted
	log := s.deps.Log.With().Str("customer_id", req.Customer.ID).Logger()

	advance(&state, StateValidatingCustomer)
	if err := s.validate.Struct(req); err != nil {
		advance(&state, StateFailed)
		res.Outcome = OutcomeFailed
		s.count(ctx, "validation_failed")
		return res, &ValidationError{Fields: fieldNames(err)}
	}
	if req.Cart.IsEmpty() {
		advance(&state, StateFailed)
		res.Outcome = OutcomeFailed
		s.count(ctx, "validation_failed")
		return res, &ValidationError{Fields: []string{"cart.items"}}
	}

	advance(&state, StateValidatingInventory)
	check, pr, err := s.survey(ctx, req.Cart, req.Customer.ID)
	if err != nil {
		advance(&state, StateFailed)
		res.Outcome = OutcomeFailed
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.count(ctx, "validation_failed")
		}
		return res, err
	}
	discount := 0.0
	promoCode := ""
	if pr != nil {
		if !pr.Accepted {
			advance(&state, StateFailed)
			res.Outcome = OutcomeFailed
			s.count(ctx, "validation_failed")
			return res, &ValidationError{PromoReason: pr.Reason}
		}
		discount = pr.DiscountPercent
		promoCode = strings.ToLower(strings.TrimSpace(req.Cart.PromoCode))
		res.PromoNote = pr.Note
	}
	res.Pricing = pricing.Calculate(priceItems(req.Cart.Items, check.Locations), req.DeliveryMethod, s.deps.Rates, discount)
	res.Outcome = OutcomeValidated

	orderID := s.newID()
	invoiceID := "INV-" + s.newID()
	log = log.With().Str("order_id", orderID).Logger()

	advance(&state, StateAwaitingPayment)
	proc, ok := s.deps.Processors[req.PaymentMethod]
	if !ok {
		advance(&state, StateFailed)
		res.Outcome = OutcomeFailed
		return res, fmt.Errorf("no processor configured for method %q", req.PaymentMethod)
	}
	conf, err := s.charge(ctx, proc, res.Pricing.Total, orderID, req.Customer.ID)
	if err != nil {
		advance(&state, StateFailed)
		s.count(ctx, "payment_failed")
		log.Warn().Err(err).Msg("payment not captured")
		return res, &PaymentError{Err: err}
	}
	res.Outcome = OutcomePaid

	advance(&state, StateCommittingInventory)
	commit, err := s.deps.Committer.Commit(ctx, req.Cart.Items, check.Locations)
	if err != nil {
		advance(&state, StateFailed)
		s.count(ctx, "commit_failed")
		// money has moved with nothing to show for it; no refund path exists
		log.Error().Err(err).
			Str("payment_reference", conf.Reference).
			Msg("inventory commit failed after payment capture")
		return res, &InventoryCommitError{Err: err, PaymentReference: conf.Reference}
	}
	res.Outcome = OutcomeInventoryCommitted

	advance(&state, StatePersistingOrder)
	order := orders.Order{
		OrderID:          orderID,
		CustomerID:       req.Customer.ID,
		InvoiceID:        invoiceID,
		Status:           orders.StatusPending,
		Items:            snapshotItems(req.Cart.Items, check.Locations),
		Pricing:          res.Pricing,
		Currency:         s.deps.Currency,
		DeliveryMethod:   string(req.DeliveryMethod),
		PaymentMethod:    string(req.PaymentMethod),
		PaymentReference: conf.Reference,
		PromoCode:        promoCode,
	}
	if err := s.deps.Orders.Create(ctx, order); err != nil {
		advance(&state, StateCompensatingInventory)
		restored, rerr := s.deps.Compensator.Revert(ctx, req.Cart.Items, check.Locations)
		advance(&state, StateFailed)
		if rerr != nil {
			s.count(ctx, "compensation_failed")
			s.deps.Metrics.CompensationFailed(ctx)
			log.Error().Err(rerr).
				AnErr("persist_error", err).
				Str("payment_reference", conf.Reference).
				Interface("applied_deltas", commit.Applied).
				Msg("compensation failed; stock still decremented, manual intervention required")
			return res, &CompensationError{PersistErr: err, RevertErr: rerr, Deltas: commit.Applied}
		}
		res.Outcome = OutcomeCompensated
		s.count(ctx, "compensated")
		log.Warn().Err(err).
			Interface("restored_deltas", restored.Restored).
			Msg("order persistence failed; stock restored")
		return res, &OrderPersistError{Err: err}
	}
	res.Outcome = OutcomeOrderPersisted
	res.OrderID = orderID
	res.InvoiceID = invoiceID

	advance(&state, StateCompleted)
	req.Cart.Clear()
	s.count(ctx, "completed")
	log.Info().Float64("total", res.Pricing.Total).Msg("checkout completed")
	return res, nil
}

// Quote prices a cart without side effects: same resolution, promo and
// pricing path as Checkout, but no payment, no writes. A rejected promo is
// reported, not fatal.
func (s *Saga) Quote(ctx context.Context, sess *cart.Session, method pricing.DeliveryMethod) (*QuoteResult, error) {
	if sess.IsEmpty() {
		return nil, &ValidationError{Fields: []string{"cart.items"}}
	}
	check, pr, err := s.survey(ctx, sess, sess.CustomerID)
	if err != nil {
		return nil, err
	}
	discount := 0.0
	if pr != nil && pr.Accepted {
		discount = pr.DiscountPercent
	}
	return &QuoteResult{
		Pricing: pricing.Calculate(priceItems(sess.Items, check.Locations), method, s.deps.Rates, discount),
		Promo:   pr,
	}, nil
}

// survey resolves the cart and, when a promo code is present, evaluates it.
// Stock violations come back as *ValidationError; the promo result is
// returned as-is, accepted or not.
func (s *Saga) survey(ctx context.Context, sess *cart.Session, customerID string) (*inventory.ValidationResult, *promo.Result, error) {
	check, err := s.deps.Stock.Validate(ctx, sess.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("inventory validation: %w", err)
	}
	if !check.OK() {
		return nil, nil, &ValidationError{
			NotFound:     check.NotFound,
			Insufficient: check.Insufficient,
		}
	}

	var pr *promo.Result
	if sess.PromoCode != "" {
		pr, err = s.deps.Promo.Validate(ctx, sess.PromoCode, customerID, promotionalOnly(sess.Items, check.Locations))
		if err != nil {
			return nil, nil, fmt.Errorf("promo validation: %w", err)
		}
	}
	return check, pr, nil
}

// charge runs the two-step intent/confirm flow. Anything other than a
// confirmed "succeeded" is treated as not captured, including "pending":
// the saga must not decrement stock against money that may never arrive.
func (s *Saga) charge(ctx context.Context, proc payment.Processor, amount float64, orderID, customerID string) (*payment.Confirmation, error) {
	token, err := proc.CreateIntent(ctx, amount, s.deps.Currency, map[string]string{
		"order_id":    orderID,
		"customer_id": customerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}
	conf, err := proc.Confirm(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	if conf.Status != payment.StatusSucceeded {
		return nil, fmt.Errorf("processor returned status %q", conf.Status)
	}
	return conf, nil
}

func (s *Saga) count(ctx context.Context, outcome string) {
	s.deps.Metrics.CheckoutOutcome(ctx, outcome)
}

// priceItems reduces cart lines to pricing inputs. The resolved record's
// price is authoritative; the client-supplied unit price is display-only.
func priceItems(items []cart.LineItem, locs map[string]catalog.Location) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		loc := locs[it.ProductID]
		out = append(out, pricing.Item{
			UnitPrice:   loc.Record.Price,
			Quantity:    it.Quantity,
			Promotional: loc.Catalog == catalog.CatalogPromotional,
		})
	}
	return out
}

func snapshotItems(items []cart.LineItem, locs map[string]catalog.Location) []orders.Item {
	out := make([]orders.Item, 0, len(items))
	for _, it := range items {
		loc := locs[it.ProductID]
		name := loc.Record.Name
		if name == "" {
			name = it.Name
		}
		out = append(out, orders.Item{
			ProductID: it.ProductID,
			Name:      name,
			Catalog:   string(loc.Catalog),
			UnitPrice: loc.Record.Price,
			Quantity:  it.Quantity,
			Color:     it.Color,
			Size:      it.Size,
		})
	}
	return out
}

// promotionalOnly reports whether every cart item resolved to the
// promotional catalog.
func promotionalOnly(items []cart.LineItem, locs map[string]catalog.Location) bool {
	for _, it := range items {
		if locs[it.ProductID].Catalog != catalog.CatalogPromotional {
			return false
		}
	}
	return len(items) > 0
}

func fieldNames(err error) []string {
	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}
	fields := make([]string, 0, len(verr))
	for _, fe := range verr {
		fields = append(fields, fe.Namespace())
	}
	return fields
}
