package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/prepally/credits-engine/pkg/handlers"
	paymenthandlers "github.com/prepally/credits-engine/pkg/handlers/payments"
	wallethandlers "github.com/prepally/credits-engine/pkg/handlers/wallets"
	webhookhandlers "github.com/prepally/credits-engine/pkg/handlers/webhooks"
	"github.com/prepally/credits-engine/pkg/ledger"
	"github.com/prepally/credits-engine/pkg/payments"
	"github.com/prepally/credits-engine/pkg/payments/mercadopago"
	"github.com/prepally/credits-engine/pkg/payments/paypal"
	"github.com/prepally/credits-engine/pkg/scheduler"
	dydbstore "github.com/prepally/credits-engine/pkg/storage/dynamodb"
	"github.com/prepally/credits-engine/pkg/webhooks"
)

func main() {
	// Load environment variables from .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// AWS Session
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	dbClient := awsdynamodb.NewFromConfig(cfg)
	walletsTable := os.Getenv("DYNAMODB_WALLETS_TABLE_NAME")
	ledgerTable := os.Getenv("DYNAMODB_LEDGER_TABLE_NAME")
	paymentsTable := os.Getenv("DYNAMODB_PAYMENTS_TABLE_NAME")
	webhooksTable := os.Getenv("DYNAMODB_WEBHOOKS_TABLE_NAME")

	if walletsTable == "" || ledgerTable == "" || paymentsTable == "" || webhooksTable == "" {
		log.Fatal("One or more DynamoDB table name environment variables are not set")
	}

	store := dydbstore.New(dbClient, walletsTable, ledgerTable, paymentsTable, webhooksTable)
	engine := ledger.NewEngine(store, logger)

	// SQS Client and Scheduler for delayed payment verification. Optional: when
	// the queue is not configured, the webhook and manual verify paths still
	// settle every payment.
	var sched scheduler.Scheduler
	if queueURL := os.Getenv("SQS_VERIFICATION_QUEUE_URL"); queueURL != "" {
		sched = scheduler.NewSQSScheduler(sqs.NewFromConfig(cfg), queueURL)
	} else {
		log.Println("SQS_VERIFICATION_QUEUE_URL not set, delayed verification disabled")
	}

	gateway := buildGateway(logger)
	reconciler := webhooks.NewReconciler(store, engine, gateway, logger)

	router := handlers.NewRouter(handlers.Deps{
		Payments: paymenthandlers.NewPaymentsHandler(store, gateway, reconciler, sched, logger),
		Wallets:  wallethandlers.NewWalletsHandler(store, engine),
		Webhooks: webhookhandlers.NewWebhooksHandler(reconciler),
		Logger:   logger,
	})

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080" // Default port if not specified
	}

	log.Printf("Starting server on port %s", port)

	err = http.ListenAndServe(":"+port, router)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildGateway(logger *slog.Logger) *payments.Gateway {
	publicBase := os.Getenv("PUBLIC_BASE_URL")
	sandbox := os.Getenv("PAYMENTS_ENV") != "production"

	resolver := payments.StaticResolver(payments.ProviderType(os.Getenv("PREFERRED_PROVIDER")))
	gateway := payments.NewGateway(resolver, logger)

	gateway.Register(mercadopago.New(mercadopago.Config{
		AccessToken:   os.Getenv("MP_ACCESS_TOKEN"),
		WebhookSecret: os.Getenv("MP_WEBHOOK_SECRET"),
		Sandbox:       sandbox,
		PublicBaseURL: publicBase,
	}))
	gateway.Register(paypal.New(paypal.Config{
		ClientID:      os.Getenv("PAYPAL_CLIENT_ID"),
		ClientSecret:  os.Getenv("PAYPAL_CLIENT_SECRET"),
		WebhookID:     os.Getenv("PAYPAL_WEBHOOK_ID"),
		Sandbox:       sandbox,
		PublicBaseURL: publicBase,
	}))
	return gateway
}
