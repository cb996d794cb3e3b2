package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/meridian-retail/storefront/internal/awsx"
	"github.com/meridian-retail/storefront/internal/config"
	"github.com/meridian-retail/storefront/internal/logging"
)

func main() {
	log := logging.New("storefront-worker")

	clients, err := awsx.NewClients(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init aws clients")
	}

	p := NewProcessor(clients.DynamoDB, config.Load(), log)

	// RUN_LOCAL=true simulates a single SQS event for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"order_id":"local-order-1","customer_id":"local-customer-1"}`
		}
		ev := events.SQSEvent{
			Records: []events.SQSMessage{{Body: body}},
		}
		if err := p.Handle(context.Background(), ev); err != nil {
			log.Fatal().Err(err).Msg("local handler error")
		}
		return
	}

	lambda.Start(p.Handle)
}
