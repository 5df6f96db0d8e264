package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/storage"
)

// MarkWebhookProcessed records a provider delivery id so a redelivery within
// the TTL window can be dropped without reprocessing. The conditional Put makes
// the check and the insert one atomic operation; the table's TTL attribute
// bounds the set. Being a shared table, the guard holds across instances.
func (s *Store) MarkWebhookProcessed(ctx context.Context, provider, deliveryID string, ttl time.Duration) error {
	now := time.Now()
	item := models.ProcessedWebhook{
		ID:        provider + "#" + deliveryID,
		Provider:  provider,
		TTL:       now.Add(ttl).Unix(),
		CreatedAt: now.Unix(),
	}

	itemAV, err := attributevalue.MarshalMap(&item)
	if err != nil {
		return fmt.Errorf("failed to marshal processed webhook: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.WebhooksTableName),
		Item:                itemAV,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return storage.ErrDuplicateWebhook
		}
		return fmt.Errorf("failed to record processed webhook: %w", err)
	}
	return nil
}
