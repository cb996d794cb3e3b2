package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/meridian-retail/storefront/internal/awsx"
	"github.com/meridian-retail/storefront/internal/cart"
	"github.com/meridian-retail/storefront/internal/catalog"
	"github.com/meridian-retail/storefront/internal/checkout"
	"github.com/meridian-retail/storefront/internal/config"
	"github.com/meridian-retail/storefront/internal/idempotency"
	"github.com/meridian-retail/storefront/internal/inventory"
	"github.com/meridian-retail/storefront/internal/metrics"
	"github.com/meridian-retail/storefront/internal/orders"
	"github.com/meridian-retail/storefront/internal/payment"
	"github.com/meridian-retail/storefront/internal/pricing"
	"github.com/meridian-retail/storefront/internal/promo"
	"github.com/meridian-retail/storefront/internal/validation"
)

// HandlerConfig groups dependencies for the storefront API.
type HandlerConfig struct {
	DynamoDBClient awsx.DynamoDBAPI
	SQSClient      awsx.SQSAPI
	CloudWatch     awsx.CloudWatchAPI // nil disables metrics
	Cfg            config.Config
	Log            zerolog.Logger
	TTLWindow      time.Duration
}

// RegisterRoutes wires the stores, the saga and the HTTP surface.
func RegisterRoutes(r *gin.Engine, hc HandlerConfig) {
	v := validation.New()
	cfg := hc.Cfg

	catalogStore := catalog.NewStore(hc.DynamoDBClient, cfg.StandardCatalogTable, cfg.PromoCatalogTable)
	promoStore := promo.NewStore(hc.DynamoDBClient, cfg.PromoCodesTable, cfg.PromoUsageTable)
	promoValidator := promo.NewValidator(promoStore)
	stockValidator := inventory.NewValidator(catalogStore)
	ordersStore := orders.NewStore(hc.DynamoDBClient, cfg.OrdersTable)
	idempStore := idempotency.NewStore(hc.DynamoDBClient, cfg.IdempotencyTable, hc.TTLWindow)
	emitter := metrics.NewEmitter(hc.CloudWatch, cfg.MetricsNamespace, hc.Log)

	var publisher *awsx.Publisher
	if hc.SQSClient != nil && cfg.OrdersQueueURL != "" {
		publisher = awsx.NewPublisher(hc.SQSClient, cfg.OrdersQueueURL)
	}

	saga := checkout.New(checkout.Deps{
		Stock:       stockValidator,
		Committer:   inventory.NewCommitter(catalogStore, hc.DynamoDBClient),
		Compensator: inventory.NewCompensator(catalogStore, hc.DynamoDBClient),
		Promo:       promoValidator,
		Orders:      ordersStore,
		Processors: map[payment.Method]payment.Processor{
			payment.MethodCard:   payment.NewCardProcessor(cfg.CardPaymentURL),
			payment.MethodWallet: payment.NewWalletProcessor(cfg.WalletPaymentURL),
		},
		Rates: pricing.Rates{
			TaxRate:               cfg.TaxRate,
			StandardDeliveryRate:  cfg.StandardDeliveryRate,
			ExpressDeliveryRate:   cfg.ExpressDeliveryRate,
			FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		},
		Currency: cfg.Currency,
		Metrics:  emitter,
		Log:      hc.Log,
	})

	r.POST("/checkout", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
			return
		}

		created, err := idempStore.CreateIfNotExists(ctx, idempKey, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
			return
		}
		if !created {
			rec, getErr := idempStore.Get(ctx, idempKey)
			if getErr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": getErr.Error()})
				return
			}
			if rec == nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_record_missing"})
				return
			}
			switch rec.Status {
			case idempotency.StatusDone:
				if rec.ResponseBody != "" {
					c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
					return
				}
				c.JSON(http.StatusOK, gin.H{"order_id": rec.OrderID})
				return
			case idempotency.StatusInProgress:
				c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress"})
				return
			case idempotency.StatusFailed:
				// the previous attempt failed before anything durable
				// happened; flip the record back to IN_PROGRESS so only
				// one retry re-enters the saga, then run it again
				taken, takeErr := idempStore.Retake(ctx, idempKey)
				if takeErr != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": takeErr.Error()})
					return
				}
				if !taken {
					c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress"})
					return
				}
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
				return
			}
		}

		res, err := saga.Checkout(ctx, toCheckoutRequest(&req))
		if err != nil {
			_ = idempStore.MarkFailed(ctx, idempKey, err.Error())
			writeCheckoutError(c, res, err)
			return
		}

		if publisher != nil {
			attrs := map[string]string{
				"order_id":       res.OrderID,
				"correlation_id": c.GetHeader("X-Request-Id"),
			}
			msg := awsx.OrderPlacedMessage{
				OrderID:    res.OrderID,
				CustomerID: req.Customer.ID,
				PromoCode:  req.PromoCode,
			}
			if perr := publisher.PublishOrderPlaced(ctx, msg, attrs); perr != nil {
				// the order exists and stock moved; fulfillment is re-driven
				// by reconciliation, not by failing the checkout
				hc.Log.Error().Err(perr).Str("order_id", res.OrderID).Msg("order placed publish failed")
			}
		}

		body, _ := json.Marshal(res)
		_ = idempStore.MarkDone(ctx, idempKey, string(body), http.StatusCreated)

		c.Header("Location", fmt.Sprintf("/orders/%s", res.OrderID))
		c.Data(http.StatusCreated, "application/json", body)
	})

	r.POST("/checkout/quote", func(c *gin.Context) {
		var req validation.QuoteRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		sess := &cart.Session{
			CustomerID: req.CustomerID,
			Items:      toLineItems(req.Items),
			PromoCode:  req.PromoCode,
		}
		q, err := saga.Quote(c.Request.Context(), sess, pricing.DeliveryMethod(req.DeliveryMethod))
		if err != nil {
			writeCheckoutError(c, nil, err)
			return
		}
		c.JSON(http.StatusOK, q)
	})

	r.POST("/promo/validate", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.PromoCheckRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		promotionalOnly := false
		if len(req.Items) > 0 {
			check, err := stockValidator.Validate(ctx, toLineItems(req.Items))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog_lookup_failed", "detail": err.Error()})
				return
			}
			promotionalOnly = allPromotional(req.Items, check.Locations)
		}

		result, err := promoValidator.Validate(ctx, req.Code, req.CustomerID, promotionalOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "promo_lookup_failed", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := ordersStore.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed", "detail": err.Error()})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusOK, order)
	})

	r.GET("/customers/:id/orders", func(c *gin.Context) {
		list, err := ordersStore.ListByCustomer(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_listing_failed", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	})
}

// writeCheckoutError maps the saga's error taxonomy onto HTTP responses.
// res may be nil (quote path).
func writeCheckoutError(c *gin.Context, res *checkout.Result, err error) {
	outcome := checkout.SagaOutcome("")
	if res != nil {
		outcome = res.Outcome
	}

	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "validation_failed",
			"fields":       verr.Fields,
			"not_found":    verr.NotFound,
			"insufficient": verr.Insufficient,
			"promo_reason": verr.PromoReason,
		})
		return
	}

	var perr *checkout.PaymentError
	if errors.As(err, &perr) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":   "payment_failed",
			"detail":  perr.Error(),
			"outcome": outcome,
		})
		return
	}

	var cerr *checkout.InventoryCommitError
	if errors.As(err, &cerr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "inventory_commit_failed",
			"detail":            "payment was captured but stock could not be reserved; contact support",
			"payment_reference": cerr.PaymentReference,
			"outcome":           outcome,
		})
		return
	}

	var operr *checkout.OrderPersistError
	if errors.As(err, &operr) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "order_persist_failed",
			"detail":  "stock was restored; please try again",
			"outcome": outcome,
		})
		return
	}

	var comperr *checkout.CompensationError
	if errors.As(err, &comperr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "compensation_failed",
			"detail":  "please contact support",
			"outcome": outcome,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "detail": err.Error()})
}

func toCheckoutRequest(req *validation.CheckoutRequest) *checkout.Request {
	return &checkout.Request{
		Customer: checkout.Customer{
			ID:    req.Customer.ID,
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
		},
		Cart: &cart.Session{
			CustomerID: req.Customer.ID,
			Items:      toLineItems(req.Items),
			PromoCode:  req.PromoCode,
		},
		DeliveryMethod: pricing.DeliveryMethod(req.DeliveryMethod),
		PaymentMethod:  payment.Method(req.PaymentMethod),
	}
}

func toLineItems(items []validation.CartItem) []cart.LineItem {
	out := make([]cart.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, cart.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Color:     it.Color,
			Size:      it.Size,
		})
	}
	return out
}

func allPromotional(items []validation.CartItem, locs map[string]catalog.Location) bool {
	for _, it := range items {
		if locs[it.ProductID].Catalog != catalog.CatalogPromotional {
			return false
		}
	}
	return len(items) > 0
}
