package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prepally/credits-engine/pkg/storage"
)

// DynamoDBAPI captures the subset of the DynamoDB client used by the store.
// Declared here so tests can substitute a mock.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client            DynamoDBAPI
	WalletsTableName  string
	LedgerTableName   string
	PaymentsTableName string
	WebhooksTableName string
}

// New creates a new Store.
func New(client DynamoDBAPI, walletsTable, ledgerTable, paymentsTable, webhooksTable string) *Store {
	return &Store{
		Client:            client,
		WalletsTableName:  walletsTable,
		LedgerTableName:   ledgerTable,
		PaymentsTableName: paymentsTable,
		WebhooksTableName: webhooksTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)
