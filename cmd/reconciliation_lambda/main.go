package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"

	"github.com/prepally/credits-engine/pkg/ledger"
	"github.com/prepally/credits-engine/pkg/payments"
	"github.com/prepally/credits-engine/pkg/payments/mercadopago"
	"github.com/prepally/credits-engine/pkg/payments/paypal"
	"github.com/prepally/credits-engine/pkg/scheduler"
	dydbstore "github.com/prepally/credits-engine/pkg/storage/dynamodb"
	"github.com/prepally/credits-engine/pkg/webhooks"
)

var reconciler *webhooks.Reconciler

// stalePaymentThreshold is how old a PENDING record must be before the
// scheduled sweep re-checks it with its provider.
const stalePaymentThreshold = 30 * time.Minute

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

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

	sandbox := os.Getenv("PAYMENTS_ENV") != "production"
	gateway := payments.NewGateway(nil, logger)
	gateway.Register(mercadopago.New(mercadopago.Config{
		AccessToken:   os.Getenv("MP_ACCESS_TOKEN"),
		WebhookSecret: os.Getenv("MP_WEBHOOK_SECRET"),
		Sandbox:       sandbox,
	}))
	gateway.Register(paypal.New(paypal.Config{
		ClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
		ClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
		WebhookID:    os.Getenv("PAYPAL_WEBHOOK_ID"),
		Sandbox:      sandbox,
	}))

	reconciler = webhooks.NewReconciler(store, engine, gateway, logger)
}

// HandleRequest is triggered two ways: by the verification queue with SQS
// records carrying one task each, and by an EventBridge Schedule with an empty
// event, which sweeps stale PENDING payments.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	if len(sqsEvent.Records) == 0 {
		return sweepStalePayments(ctx)
	}

	for _, message := range sqsEvent.Records {
		log.Printf("Processing message %s", message.MessageId)

		var task scheduler.VerificationTask
		if err := json.Unmarshal([]byte(message.Body), &task); err != nil {
			log.Printf("ERROR: failed to unmarshal verification task from SQS message %s: %v", message.MessageId, err)
			// Returning an error will cause SQS to retry the message, which is appropriate here.
			return err
		}

		rec, err := reconciler.VerifyPayment(ctx, task.PaymentRecordID)
		if err != nil {
			log.Printf("ERROR: failed to verify payment %s: %v", task.PaymentRecordID, err)
			// In a production system, persistent failures would be sent to a DLQ.
			return err
		}

		log.Printf("Verified payment %s, status %s", rec.ID, rec.Status)
	}

	return nil
}

func sweepStalePayments(ctx context.Context) error {
	log.Println("Starting sweep of stale pending payments...")

	stale, err := reconciler.Store.ListStalePendingPayments(ctx, stalePaymentThreshold)
	if err != nil {
		log.Printf("ERROR: failed to list stale pending payments: %v", err)
		return err
	}

	if len(stale) == 0 {
		log.Println("No stale pending payments found.")
		return nil
	}

	log.Printf("Found %d stale pending payments. Re-checking them...", len(stale))

	for _, rec := range stale {
		if _, err := reconciler.VerifyPayment(ctx, rec.ID); err != nil {
			log.Printf("ERROR: failed to verify payment %s: %v", rec.ID, err)
			// Continue to the next record, don't let one failure stop the whole batch.
			continue
		}
	}

	log.Println("Sweep finished.")
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
