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
	"github.com/google/uuid"

	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/storage"
)

const (
	preferenceIDGSI  = "preference_id-index"
	externalIDGSI    = "external_payment_id-index"
	pendingStatusGSI = "payment_status-created_at-index"
	userPaymentsGSI  = "user_id-created_at-index"
)

// CreatePaymentRecord persists a new PENDING payment record. The record is
// written before the checkout response is returned to the client, so a webhook
// arriving immediately can still be matched.
func (s *Store) CreatePaymentRecord(ctx context.Context, rec *models.PaymentRecord) (*models.PaymentRecord, error) {
	rec.ID = uuid.New().String()
	rec.Status = models.PaymentPending
	rec.CreatedAt = time.Now().UTC()

	recAV, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment record: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.PaymentsTableName),
		Item:                recAV,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment record in DynamoDB: %w", err)
	}

	return rec, nil
}

// GetPaymentRecord retrieves a payment record by its internal ID.
func (s *Store) GetPaymentRecord(ctx context.Context, id string) (*models.PaymentRecord, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment record ID: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.PaymentsTableName),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get payment record from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrPaymentNotFound
	}

	var rec models.PaymentRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment record: %w", err)
	}
	return &rec, nil
}

// GetPaymentByPreferenceID retrieves a payment record by the provider's
// checkout preference / order id.
func (s *Store) GetPaymentByPreferenceID(ctx context.Context, preferenceID string) (*models.PaymentRecord, error) {
	return s.queryOnePayment(ctx, preferenceIDGSI, "preference_id", preferenceID)
}

// GetPaymentByExternalID retrieves a payment record by the provider's payment id.
func (s *Store) GetPaymentByExternalID(ctx context.Context, externalID string) (*models.PaymentRecord, error) {
	return s.queryOnePayment(ctx, externalIDGSI, "external_payment_id", externalID)
}

func (s *Store) queryOnePayment(ctx context.Context, index, attr, value string) (*models.PaymentRecord, error) {
	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.PaymentsTableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String(fmt.Sprintf("%s = :v", attr)),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query payment record by %s: %w", attr, err)
	}
	if len(result.Items) == 0 {
		return nil, storage.ErrPaymentNotFound
	}

	var rec models.PaymentRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment record: %w", err)
	}
	return &rec, nil
}

// GetPendingPaymentForUser retrieves the user's most recent PENDING record for
// a package. Used as fallback correlation when a notification carries neither
// the preference id nor the external payment id.
func (s *Store) GetPendingPaymentForUser(ctx context.Context, userID, packageID string) (*models.PaymentRecord, error) {
	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.PaymentsTableName),
		IndexName:              aws.String(userPaymentsGSI),
		KeyConditionExpression: aws.String("user_id = :uid"),
		FilterExpression:       aws.String("payment_status = :pending AND package_id = :pkg"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":     &types.AttributeValueMemberS{Value: userID},
			":pending": &types.AttributeValueMemberS{Value: string(models.PaymentPending)},
			":pkg":     &types.AttributeValueMemberS{Value: packageID},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pending payments for user: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, storage.ErrPaymentNotFound
	}

	var rec models.PaymentRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment record: %w", err)
	}
	return &rec, nil
}

// ListStalePendingPayments retrieves PENDING records older than maxAge, for the
// scheduled reconciliation sweep.
func (s *Store) ListStalePendingPayments(ctx context.Context, maxAge time.Duration) ([]models.PaymentRecord, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	cutoffAV, err := attributevalue.Marshal(cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cutoff timestamp: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.PaymentsTableName),
		IndexName:              aws.String(pendingStatusGSI),
		KeyConditionExpression: aws.String("payment_status = :pending AND created_at < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: string(models.PaymentPending)},
			":cutoff":  cutoffAV,
		},
	}

	var recs []models.PaymentRecord
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query stale pending payments: %w", err)
		}

		var page []models.PaymentRecord
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment records: %w", err)
		}
		recs = append(recs, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return recs, nil
}

// TransitionPayment moves a record out of a non-terminal state. The condition
// expression is what makes the PENDING -> terminal transition happen exactly
// once; a repeat notification fails the condition and surfaces as
// ErrPaymentAlreadyFinal.
func (s *Store) TransitionPayment(ctx context.Context, id string, status models.PaymentStatus, externalID, statusDetail string) error {
	now := time.Now().UTC()
	nowAV, err := attributevalue.Marshal(now)
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	update := "SET payment_status = :status, status_detail = :detail"
	values := map[string]types.AttributeValue{
		":status":     &types.AttributeValueMemberS{Value: string(status)},
		":detail":     &types.AttributeValueMemberS{Value: statusDetail},
		":pending":    &types.AttributeValueMemberS{Value: string(models.PaymentPending)},
		":in_process": &types.AttributeValueMemberS{Value: string(models.PaymentInProcess)},
	}
	if externalID != "" {
		update += ", external_payment_id = :ext"
		values[":ext"] = &types.AttributeValueMemberS{Value: externalID}
	}
	if status == models.PaymentApproved {
		update += ", paid_at = :now"
		values[":now"] = nowAV
	}

	_, err = s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.PaymentsTableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression:    aws.String(update),
		ConditionExpression: aws.String("payment_status = :pending OR payment_status = :in_process"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return storage.ErrPaymentAlreadyFinal
		}
		return fmt.Errorf("failed to transition payment record: %w", err)
	}
	return nil
}
