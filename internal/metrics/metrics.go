// Package metrics emits a small set of CloudWatch custom metrics for the
// checkout flow. A nil Emitter is valid and drops every metric, which keeps
// local runs free of AWS calls.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"

	"github.com/meridian-retail/storefront/internal/awsx"
)

// Emitter publishes checkout metrics under a single namespace.
type Emitter struct {
	client    awsx.CloudWatchAPI
	namespace string
	log       zerolog.Logger
	nowFunc   func() time.Time
}

// NewEmitter returns an Emitter, or nil when client is nil.
func NewEmitter(client awsx.CloudWatchAPI, namespace string, log zerolog.Logger) *Emitter {
	if client == nil {
		return nil
	}
	return &Emitter{
		client:    client,
		namespace: namespace,
		log:       log,
		nowFunc:   time.Now,
	}
}

// CheckoutOutcome counts one finished checkout with an Outcome dimension
// (completed, validation_failed, payment_failed, commit_failed,
// compensated, compensation_failed).
func (e *Emitter) CheckoutOutcome(ctx context.Context, outcome string) {
	e.put(ctx, "CheckoutOutcome", 1, cwtypes.Dimension{
		Name:  aws.String("Outcome"),
		Value: aws.String(outcome),
	})
}

// CompensationFailed counts a stock revert that did not land. These need a
// human: payment was captured and stock is still decremented.
func (e *Emitter) CompensationFailed(ctx context.Context) {
	e.put(ctx, "CompensationFailed", 1)
}

func (e *Emitter) put(ctx context.Context, name string, value float64, dims ...cwtypes.Dimension) {
	if e == nil {
		return
	}
	_, err := e.client.PutMetricData(ctx, &cw.PutMetricDataInput{
		Namespace: aws.String(e.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  aws.Time(e.nowFunc()),
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		// metrics are best effort; never fail the request over them
		e.log.Warn().Err(err).Str("metric", name).Msg("put metric data failed")
	}
}
