package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/storage"
)

const userLedgerGSI = "user_id-created_at-index"

// GetIdempotencyRecord retrieves the stored result of a previous keyed ledger
// write. Used to answer a replayed operation with its original outcome.
func (s *Store) GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	av, err := attributevalue.MarshalMap(map[string]string{"id": idemKeyPrefix + key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal idempotency key: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.LedgerTableName),
		Key:       av,
		// The marker is read right after a conditional write rejected the same
		// key, so an eventually-consistent read could miss it.
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("idempotency record %q not found", key)
	}

	var rec models.IdempotencyRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	return &rec, nil
}

// ListLedgerEntries retrieves a user's ledger entries, most recent first.
func (s *Store) ListLedgerEntries(ctx context.Context, userID string, opts storage.ListOptions) ([]models.LedgerEntry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.LedgerTableName),
		IndexName:              aws.String(userLedgerGSI),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false), // newest first
		// Idempotency markers share the table and the index but carry no
		// entry_type, so they are filtered out here.
		FilterExpression: aws.String("attribute_exists(entry_type)"),
	}
	if opts.Type != "" {
		input.FilterExpression = aws.String("entry_type = :etype")
		input.ExpressionAttributeValues[":etype"] = &types.AttributeValueMemberS{Value: string(opts.Type)}
	}

	// The offset is applied client-side; pages are fetched until the window is
	// covered or the index is exhausted.
	var collected []models.LedgerEntry
	want := int(opts.Offset) + int(limit)
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query ledger entries: %w", err)
		}

		var page []models.LedgerEntry
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger entries: %w", err)
		}
		collected = append(collected, page...)

		if len(collected) >= want || result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	if int(opts.Offset) >= len(collected) {
		return []models.LedgerEntry{}, nil
	}
	collected = collected[opts.Offset:]
	if len(collected) > int(limit) {
		collected = collected[:limit]
	}
	return collected, nil
}
