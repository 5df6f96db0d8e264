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

// idemKeyPrefix namespaces idempotency markers inside the ledger table so they
// can never collide with entry ids (entries use bare UUIDs).
const idemKeyPrefix = "idem#"

// ApplyEntry atomically applies one ledger entry. The wallet update, the entry
// insert and the optional idempotency marker are a single TransactWriteItems
// call: either all three commit or none do. The wallet update is guarded by an
// optimistic version condition; the marker put is guarded by a uniqueness
// condition, which is the structural defense against duplicate financial effects.
func (s *Store) ApplyEntry(ctx context.Context, entry *models.LedgerEntry) (*models.Wallet, error) {
	// 1. Get the current state of the wallet, creating it on first access.
	wallet, err := s.GetOrCreateWallet(ctx, entry.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	// 2. Compute the post-entry wallet from the version-checked snapshot.
	// The version condition below guarantees this arithmetic is race-free.
	if entry.Type.IsDebit() && wallet.Balance < entry.Amount {
		return nil, storage.ErrInsufficientCredits
	}

	now := time.Now().UTC()
	updated := *wallet
	updated.Version = wallet.Version + 1
	if entry.Type.IsDebit() {
		updated.Balance = wallet.Balance - entry.Amount
		updated.TotalSpent = wallet.TotalSpent + entry.Amount
		updated.LastDebitAt = &now
	} else {
		updated.Balance = wallet.Balance + entry.Amount
		updated.TotalEarned = wallet.TotalEarned + entry.Amount
		updated.LastCreditAt = &now
		if entry.Type == models.PURCHASE {
			updated.TotalPurchased = wallet.TotalPurchased + entry.Amount
		}
		if entry.Type.IsGrant() {
			updated.TotalGranted = wallet.TotalGranted + entry.Amount
		}
	}

	// 3. Complete the entry with server-side details.
	entry.ID = uuid.New().String()
	entry.BalanceAfter = updated.Balance
	entry.CreatedAt = now

	walletAV, err := attributevalue.MarshalMap(&updated)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wallet: %w", err)
	}
	entryAV, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	// 4. Construct the TransactWriteItems input.
	items := []types.TransactWriteItem{
		{
			// Operation 1: Replace the wallet, conditioned on the version we read.
			Put: &types.Put{
				TableName:           aws.String(s.WalletsTableName),
				Item:                walletAV,
				ConditionExpression: aws.String("version = :version"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":version": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", wallet.Version)},
				},
			},
		},
		{
			// Operation 2: Append the ledger entry.
			Put: &types.Put{
				TableName:           aws.String(s.LedgerTableName),
				Item:                entryAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		},
	}

	markerIdx := -1
	if entry.IdempotencyKey != "" {
		marker := models.IdempotencyRecord{
			Key:          idemKeyPrefix + entry.IdempotencyKey,
			UserID:       entry.UserID,
			EntryID:      entry.ID,
			BalanceAfter: entry.BalanceAfter,
			CreatedAt:    now,
		}
		markerAV, err := attributevalue.MarshalMap(&marker)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal idempotency marker: %w", err)
		}
		markerIdx = len(items)
		items = append(items, types.TransactWriteItem{
			// Operation 3: Claim the idempotency key.
			Put: &types.Put{
				TableName:           aws.String(s.LedgerTableName),
				Item:                markerAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		})
	}

	// 5. Execute the transaction.
	_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			// A failed marker condition means the key was already claimed: the
			// whole operation already happened, so report the duplicate before
			// anything else.
			if markerIdx >= 0 && len(tce.CancellationReasons) > markerIdx &&
				reasonIsConditionalCheckFailed(tce.CancellationReasons[markerIdx]) {
				return nil, storage.ErrDuplicateIdempotencyKey
			}
			if len(tce.CancellationReasons) > 0 && reasonIsConditionalCheckFailed(tce.CancellationReasons[0]) {
				return nil, storage.ErrVersionConflict
			}
		}
		return nil, fmt.Errorf("failed to execute ledger transaction: %w", err)
	}

	return &updated, nil
}

func reasonIsConditionalCheckFailed(reason types.CancellationReason) bool {
	return reason.Code != nil && *reason.Code == "ConditionalCheckFailed"
}
