package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/entities"
	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// PeerRepository implements ports.PeerRepository on DynamoDB. One item
// per pair; both users see the edge through GSI1 and GSI2.
type PeerRepository struct {
	client    *dynamodb.Client
	tableName string
	retrier   *Retrier
	logger    *zap.Logger
}

// NewPeerRepository creates a DynamoDB-backed peer edge repository.
func NewPeerRepository(client *dynamodb.Client, tableName string, retrier *Retrier, logger *zap.Logger) ports.PeerRepository {
	return &PeerRepository{
		client:    client,
		tableName: tableName,
		retrier:   retrier,
		logger:    logger,
	}
}

type edgeItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK"`
	GSI2SK     string `dynamodbav:"GSI2SK"`
	EntityType string `dynamodbav:"EntityType"`
	PairID     string `dynamodbav:"PairID"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func (r *PeerRepository) Save(ctx context.Context, edge *entities.PeerEdge) error {
	low, high := edge.Users()
	createdAt := edge.CreatedAt().Format(time.RFC3339Nano)
	item := edgeItem{
		PK:         pairPK(edge.Pair().String()),
		SK:         skEdge,
		GSI1PK:     userKey(low.String()),
		GSI1SK:     edgeGSISK(createdAt, edge.Pair().String()),
		GSI2PK:     userKey(high.String()),
		GSI2SK:     edgeGSISK(createdAt, edge.Pair().String()),
		EntityType: "EDGE",
		PairID:     edge.Pair().String(),
		CreatedAt:  createdAt,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal edge", err)
	}

	return r.retrier.Do(ctx, "edge.save", func() error {
		_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		})
		if err != nil {
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				// Edge already exists; creation is idempotent.
				return nil
			}
			return pkgerrors.NewDatabaseError("save edge", err)
		}
		return nil
	})
}

func (r *PeerRepository) Delete(ctx context.Context, pair valueobjects.PairID) error {
	return r.retrier.Do(ctx, "edge.delete", func() error {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: pairPK(pair.String())},
				"SK": &types.AttributeValueMemberS{Value: skEdge},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
		})
		if err != nil {
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				return pkgerrors.NewNotFoundError("peer edge not found")
			}
			return pkgerrors.NewDatabaseError("delete edge", err)
		}
		return nil
	})
}

func (r *PeerRepository) GetByPair(ctx context.Context, pair valueobjects.PairID) (*entities.PeerEdge, error) {
	var edge *entities.PeerEdge
	err := r.retrier.Do(ctx, "edge.get", func() error {
		out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: pairPK(pair.String())},
				"SK": &types.AttributeValueMemberS{Value: skEdge},
			},
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("get edge", err)
		}
		if out.Item == nil {
			return pkgerrors.NewNotFoundError("peer edge not found")
		}
		edge, err = unmarshalEdge(out.Item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

func (r *PeerRepository) HasEdge(ctx context.Context, pair valueobjects.PairID) (bool, error) {
	_, err := r.GetByPair(ctx, pair)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PeerRepository) ListByUser(ctx context.Context, user valueobjects.UserID) ([]*entities.PeerEdge, error) {
	var edges []*entities.PeerEdge
	err := r.retrier.Do(ctx, "edge.list", func() error {
		edges = nil
		for _, index := range []string{gsi1Name, gsi2Name} {
			keyCondition := fmt.Sprintf("%sPK = :pk AND begins_with(%sSK, :prefix)", index, index)
			out, err := r.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.tableName),
				IndexName:              aws.String(index),
				KeyConditionExpression: aws.String(keyCondition),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk":     &types.AttributeValueMemberS{Value: userKey(user.String())},
					":prefix": &types.AttributeValueMemberS{Value: "EDGE#"},
				},
			})
			if err != nil {
				return pkgerrors.NewDatabaseError("query edges", err)
			}
			for _, raw := range out.Items {
				edge, err := unmarshalEdge(raw)
				if err != nil {
					return err
				}
				edges = append(edges, edge)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].CreatedAt().After(edges[j].CreatedAt())
	})
	return edges, nil
}

func unmarshalEdge(raw map[string]types.AttributeValue) (*entities.PeerEdge, error) {
	var item edgeItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal edge", err)
	}
	pair, err := valueobjects.ParsePairID(item.PairID)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("parse edge timestamp", err)
	}
	return entities.ReconstructPeerEdge(pair, createdAt)
}
