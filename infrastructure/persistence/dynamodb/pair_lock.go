package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
	"peerbridge-backend/pkg/observability"
)

// acquireTimeout bounds how long a caller waits for a contended pair.
const acquireTimeout = 5 * time.Second

var errLockHeld = errors.New("pair lock held")

// PairLocker implements ports.PairLocker with DynamoDB conditional
// writes. One lock item per pair; a TTL attribute cleans up after a
// crashed holder.
type PairLocker struct {
	client    *dynamodb.Client
	tableName string
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewPairLocker creates a DynamoDB-backed pair locker.
func NewPairLocker(client *dynamodb.Client, tableName string, metrics *observability.Metrics, logger *zap.Logger) ports.PairLocker {
	return &PairLocker{
		client:    client,
		tableName: tableName,
		metrics:   metrics,
		logger:    logger,
	}
}

func (l *PairLocker) Acquire(ctx context.Context, pair valueobjects.PairID, owner string, ttl time.Duration) (ports.PairLock, error) {
	deadline := time.Now().Add(acquireTimeout)
	retryInterval := 50 * time.Millisecond

	for {
		lock, err := l.tryAcquire(ctx, pair, owner, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, err
		}

		l.metrics.PairLockContention.Inc()
		if time.Now().After(deadline) {
			l.logger.Warn("timed out waiting for pair lock",
				zap.String("pairId", pair.String()),
				zap.String("owner", owner))
			return nil, pkgerrors.NewUnavailableError("pair lock")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

func (l *PairLocker) tryAcquire(ctx context.Context, pair valueobjects.PairID, owner string, ttl time.Duration) (ports.PairLock, error) {
	lockID := fmt.Sprintf("%s_%d", owner, time.Now().UnixNano())
	now := time.Now()
	expiresAt := now.Add(ttl)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", pair.String())},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"Owner":      &types.AttributeValueMemberS{Value: owner},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil, errLockHeld
		}
		return nil, pkgerrors.NewDatabaseError("acquire pair lock", err)
	}

	l.logger.Debug("pair lock acquired",
		zap.String("pairId", pair.String()),
		zap.String("lockId", lockID),
		zap.String("owner", owner))

	return &pairLock{locker: l, pair: pair, lockID: lockID, owner: owner}, nil
}

type pairLock struct {
	locker *PairLocker
	pair   valueobjects.PairID
	lockID string
	owner  string
}

func (p *pairLock) Release(ctx context.Context) error {
	_, err := p.locker.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(p.locker.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", p.pair.String())},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId AND #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: p.lockID},
			":owner":  &types.AttributeValueMemberS{Value: p.owner},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			// Expired and taken over; nothing left to release.
			p.locker.logger.Warn("pair lock already released or reassigned",
				zap.String("pairId", p.pair.String()),
				zap.String("lockId", p.lockID))
			return nil
		}
		return pkgerrors.NewDatabaseError("release pair lock", err)
	}
	return nil
}
