package dynamodb

import (
	"context"
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

// RequestRepository implements ports.RequestRepository on DynamoDB.
//
// The canonical request item lives under the pair partition. While a
// request is pending a single pointer item (SK "PENDING") also exists,
// which is what makes at-most-one-pending-per-pair a key constraint
// instead of a scan.
type RequestRepository struct {
	client    *dynamodb.Client
	tableName string
	retrier   *Retrier
	logger    *zap.Logger
}

// NewRequestRepository creates a DynamoDB-backed request repository.
func NewRequestRepository(client *dynamodb.Client, tableName string, retrier *Retrier, logger *zap.Logger) ports.RequestRepository {
	return &RequestRepository{
		client:    client,
		tableName: tableName,
		retrier:   retrier,
		logger:    logger,
	}
}

type requestItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"` // REQUEST#<id> for lookup by id
	GSI1SK      string `dynamodbav:"GSI1SK"`
	EntityType  string `dynamodbav:"EntityType"`
	RequestID   string `dynamodbav:"RequestID"`
	PairID      string `dynamodbav:"PairID"`
	Requester   string `dynamodbav:"Requester"`
	Recipient   string `dynamodbav:"Recipient"`
	Status      string `dynamodbav:"Status"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	RespondedAt string `dynamodbav:"RespondedAt,omitempty"`
}

type pendingPointerItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"` // USER#<requester>
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK"` // USER#<recipient>
	GSI2SK     string `dynamodbav:"GSI2SK"`
	EntityType string `dynamodbav:"EntityType"`
	RequestID  string `dynamodbav:"RequestID"`
	PairID     string `dynamodbav:"PairID"`
	Requester  string `dynamodbav:"Requester"`
	Recipient  string `dynamodbav:"Recipient"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func (r *RequestRepository) Save(ctx context.Context, request *entities.ConnectionRequest) error {
	item := requestItem{
		PK:         pairPK(request.Pair().String()),
		SK:         requestSK(request.ID().String()),
		GSI1PK:     requestGSIPK(request.ID().String()),
		GSI1SK:     "METADATA",
		EntityType: "REQUEST",
		RequestID:  request.ID().String(),
		PairID:     request.Pair().String(),
		Requester:  request.Requester().String(),
		Recipient:  request.Recipient().String(),
		Status:     string(request.Status()),
		CreatedAt:  request.CreatedAt().Format(time.RFC3339Nano),
	}
	if !request.RespondedAt().IsZero() {
		item.RespondedAt = request.RespondedAt().Format(time.RFC3339Nano)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal request", err)
	}

	writes := []types.TransactWriteItem{
		{Put: &types.Put{TableName: aws.String(r.tableName), Item: av}},
	}

	if request.Status() == entities.RequestPending {
		createdAt := request.CreatedAt().Format(time.RFC3339Nano)
		pointer := pendingPointerItem{
			PK:         pairPK(request.Pair().String()),
			SK:         skPending,
			GSI1PK:     userKey(request.Requester().String()),
			GSI1SK:     pendingGSISK(createdAt, request.Pair().String()),
			GSI2PK:     userKey(request.Recipient().String()),
			GSI2SK:     pendingGSISK(createdAt, request.Pair().String()),
			EntityType: "PENDING_REQUEST",
			RequestID:  request.ID().String(),
			PairID:     request.Pair().String(),
			Requester:  request.Requester().String(),
			Recipient:  request.Recipient().String(),
			CreatedAt:  createdAt,
		}
		pav, err := attributevalue.MarshalMap(pointer)
		if err != nil {
			return pkgerrors.NewDatabaseError("marshal pending pointer", err)
		}
		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.tableName), Item: pav},
		})
	} else {
		writes = append(writes, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: pairPK(request.Pair().String())},
					"SK": &types.AttributeValueMemberS{Value: skPending},
				},
			},
		})
	}

	return r.retrier.Do(ctx, "request.save", func() error {
		_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: writes,
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("save request", err)
		}
		return nil
	})
}

func (r *RequestRepository) GetByID(ctx context.Context, id valueobjects.RequestID) (*entities.ConnectionRequest, error) {
	var request *entities.ConnectionRequest
	err := r.retrier.Do(ctx, "request.get_by_id", func() error {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(gsi1Name),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: requestGSIPK(id.String())},
				":sk": &types.AttributeValueMemberS{Value: "METADATA"},
			},
			Limit: aws.Int32(1),
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("query request", err)
		}
		if len(out.Items) == 0 {
			return pkgerrors.NewNotFoundError("connection request not found")
		}
		request, err = unmarshalRequest(out.Items[0])
		return err
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (r *RequestRepository) GetPendingByPair(ctx context.Context, pair valueobjects.PairID) (*entities.ConnectionRequest, error) {
	var request *entities.ConnectionRequest
	err := r.retrier.Do(ctx, "request.get_pending", func() error {
		out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: pairPK(pair.String())},
				"SK": &types.AttributeValueMemberS{Value: skPending},
			},
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("get pending pointer", err)
		}
		if out.Item == nil {
			return pkgerrors.NewNotFoundError("no pending request for pair")
		}

		var pointer pendingPointerItem
		if err := attributevalue.UnmarshalMap(out.Item, &pointer); err != nil {
			return pkgerrors.NewDatabaseError("unmarshal pending pointer", err)
		}
		request, err = pendingFromPointer(pointer)
		return err
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (r *RequestRepository) ListPendingInvolving(ctx context.Context, user valueobjects.UserID) ([]*entities.ConnectionRequest, error) {
	var requests []*entities.ConnectionRequest
	err := r.retrier.Do(ctx, "request.list_pending", func() error {
		requests = nil
		for _, index := range []string{gsi1Name, gsi2Name} {
			keyCondition := fmt.Sprintf("%sPK = :pk AND begins_with(%sSK, :prefix)", index, index)
			out, err := r.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.tableName),
				IndexName:              aws.String(index),
				KeyConditionExpression: aws.String(keyCondition),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk":     &types.AttributeValueMemberS{Value: userKey(user.String())},
					":prefix": &types.AttributeValueMemberS{Value: "PENDING#"},
				},
			})
			if err != nil {
				return pkgerrors.NewDatabaseError("query pending requests", err)
			}
			for _, raw := range out.Items {
				var pointer pendingPointerItem
				if err := attributevalue.UnmarshalMap(raw, &pointer); err != nil {
					return pkgerrors.NewDatabaseError("unmarshal pending pointer", err)
				}
				request, err := pendingFromPointer(pointer)
				if err != nil {
					return err
				}
				requests = append(requests, request)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt().After(requests[j].CreatedAt())
	})
	return requests, nil
}

func unmarshalRequest(raw map[string]types.AttributeValue) (*entities.ConnectionRequest, error) {
	var item requestItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal request", err)
	}

	id, err := valueobjects.NewRequestIDFromString(item.RequestID)
	if err != nil {
		return nil, err
	}
	requester, err := valueobjects.NewUserID(item.Requester)
	if err != nil {
		return nil, err
	}
	recipient, err := valueobjects.NewUserID(item.Recipient)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("parse request timestamp", err)
	}
	var respondedAt time.Time
	if item.RespondedAt != "" {
		respondedAt, err = time.Parse(time.RFC3339Nano, item.RespondedAt)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("parse request timestamp", err)
		}
	}

	return entities.ReconstructConnectionRequest(
		id, requester, recipient, entities.RequestStatus(item.Status), createdAt, respondedAt)
}

func pendingFromPointer(pointer pendingPointerItem) (*entities.ConnectionRequest, error) {
	id, err := valueobjects.NewRequestIDFromString(pointer.RequestID)
	if err != nil {
		return nil, err
	}
	requester, err := valueobjects.NewUserID(pointer.Requester)
	if err != nil {
		return nil, err
	}
	recipient, err := valueobjects.NewUserID(pointer.Recipient)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, pointer.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("parse request timestamp", err)
	}
	return entities.ReconstructConnectionRequest(
		id, requester, recipient, entities.RequestPending, createdAt, time.Time{})
}
