package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
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

// appendAttempts bounds optimistic retries when concurrent senders race
// on the same sequence number.
const appendAttempts = 5

// ConversationRepository implements ports.ConversationRepository on
// DynamoDB. The conversation metadata item carries NextSeq; appending a
// message is a transaction that bumps NextSeq conditionally and puts the
// message item, so sequences stay gapless under concurrent senders.
type ConversationRepository struct {
	client    *dynamodb.Client
	tableName string
	retrier   *Retrier
	logger    *zap.Logger
}

// NewConversationRepository creates a DynamoDB-backed conversation store.
func NewConversationRepository(client *dynamodb.Client, tableName string, retrier *Retrier, logger *zap.Logger) ports.ConversationRepository {
	return &ConversationRepository{
		client:    client,
		tableName: tableName,
		retrier:   retrier,
		logger:    logger,
	}
}

type conversationItem struct {
	PK          string            `dynamodbav:"PK"`
	SK          string            `dynamodbav:"SK"`
	GSI1PK      string            `dynamodbav:"GSI1PK"`
	GSI1SK      string            `dynamodbav:"GSI1SK"`
	GSI2PK      string            `dynamodbav:"GSI2PK"`
	GSI2SK      string            `dynamodbav:"GSI2SK"`
	EntityType  string            `dynamodbav:"EntityType"`
	PairID      string            `dynamodbav:"PairID"`
	NextSeq     uint64            `dynamodbav:"NextSeq"`
	ReadMarkers map[string]uint64 `dynamodbav:"ReadMarkers,omitempty"`
	CreatedAt   string            `dynamodbav:"CreatedAt"`
}

type messageItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	PairID     string `dynamodbav:"PairID"`
	Sender     string `dynamodbav:"Sender"`
	Body       string `dynamodbav:"Body"`
	Sequence   uint64 `dynamodbav:"Sequence"`
	SentAt     string `dynamodbav:"SentAt"`
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *entities.Conversation) error {
	low, high := conversation.ID().Users()
	createdAt := conversation.CreatedAt().Format(time.RFC3339Nano)
	item := conversationItem{
		PK:          pairPK(conversation.ID().String()),
		SK:          skConv,
		GSI1PK:      userKey(low.String()),
		GSI1SK:      convGSISK(createdAt, conversation.ID().String()),
		GSI2PK:      userKey(high.String()),
		GSI2SK:      convGSISK(createdAt, conversation.ID().String()),
		EntityType:  "CONVERSATION",
		PairID:      conversation.ID().String(),
		NextSeq:     conversation.NextSeq(),
		ReadMarkers: conversation.ReadMarkers(),
		CreatedAt:   createdAt,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal conversation", err)
	}

	return r.retrier.Do(ctx, "conversation.create", func() error {
		_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		})
		if err != nil {
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				// Already created, e.g. by a crossing accept.
				return nil
			}
			return pkgerrors.NewDatabaseError("create conversation", err)
		}
		return nil
	})
}

func (r *ConversationRepository) GetByID(ctx context.Context, id valueobjects.PairID) (*entities.Conversation, error) {
	var conversation *entities.Conversation
	err := r.retrier.Do(ctx, "conversation.get", func() error {
		item, err := r.getItem(ctx, id)
		if err != nil {
			return err
		}
		conversation, err = conversationFromItem(item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, user valueobjects.UserID) ([]*entities.Conversation, error) {
	var conversations []*entities.Conversation
	err := r.retrier.Do(ctx, "conversation.list", func() error {
		conversations = nil
		for _, index := range []string{gsi1Name, gsi2Name} {
			keyCondition := fmt.Sprintf("%sPK = :pk AND begins_with(%sSK, :prefix)", index, index)
			out, err := r.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.tableName),
				IndexName:              aws.String(index),
				KeyConditionExpression: aws.String(keyCondition),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk":     &types.AttributeValueMemberS{Value: userKey(user.String())},
					":prefix": &types.AttributeValueMemberS{Value: "CONV#"},
				},
			})
			if err != nil {
				return pkgerrors.NewDatabaseError("query conversations", err)
			}
			for _, raw := range out.Items {
				var item conversationItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return pkgerrors.NewDatabaseError("unmarshal conversation", err)
				}
				conversation, err := conversationFromItem(item)
				if err != nil {
					return err
				}
				conversations = append(conversations, conversation)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt().After(conversations[j].CreatedAt())
	})
	return conversations, nil
}

func (r *ConversationRepository) Append(ctx context.Context, id valueobjects.PairID, sender valueobjects.UserID, body valueobjects.MessageBody) (*entities.Message, error) {
	var message *entities.Message
	err := r.retrier.Do(ctx, "conversation.append", func() error {
		for attempt := 0; attempt < appendAttempts; attempt++ {
			item, err := r.getItem(ctx, id)
			if err != nil {
				return err
			}
			seq := item.NextSeq
			sentAt := time.Now()

			msg := messageItem{
				PK:         pairPK(id.String()),
				SK:         messageSK(seq),
				EntityType: "MESSAGE",
				PairID:     id.String(),
				Sender:     sender.String(),
				Body:       body.String(),
				Sequence:   seq,
				SentAt:     sentAt.Format(time.RFC3339Nano),
			}
			mav, err := attributevalue.MarshalMap(msg)
			if err != nil {
				return pkgerrors.NewDatabaseError("marshal message", err)
			}

			_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
				TransactItems: []types.TransactWriteItem{
					{
						Update: &types.Update{
							TableName:           aws.String(r.tableName),
							Key:                 conversationKey(id),
							UpdateExpression:    aws.String("SET NextSeq = NextSeq + :one"),
							ConditionExpression: aws.String("NextSeq = :expected"),
							ExpressionAttributeValues: map[string]types.AttributeValue{
								":one":      &types.AttributeValueMemberN{Value: "1"},
								":expected": &types.AttributeValueMemberN{Value: strconv.FormatUint(seq, 10)},
							},
						},
					},
					{
						Put: &types.Put{
							TableName:           aws.String(r.tableName),
							Item:                mav,
							ConditionExpression: aws.String("attribute_not_exists(PK)"),
						},
					},
				},
			})
			if err == nil {
				message, err = entities.ReconstructMessage(id, sender, body, seq, sentAt)
				return err
			}

			var canceled *types.TransactionCanceledException
			if errors.As(err, &canceled) {
				// Lost the race for this sequence number; re-read and retry.
				r.logger.Debug("append sequence conflict, retrying",
					zap.String("conversationId", id.String()),
					zap.Uint64("sequence", seq))
				continue
			}
			return pkgerrors.NewDatabaseError("append message", err)
		}
		return pkgerrors.NewUnavailableError("conversation")
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, id valueobjects.PairID, afterSeq uint64, limit int) ([]*entities.Message, error) {
	var messages []*entities.Message
	err := r.retrier.Do(ctx, "conversation.list_messages", func() error {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":   &types.AttributeValueMemberS{Value: pairPK(id.String())},
				":from": &types.AttributeValueMemberS{Value: messageSK(afterSeq + 1)},
				":to":   &types.AttributeValueMemberS{Value: maxMessageSK},
			},
			ScanIndexForward: aws.Bool(true),
		}
		if limit > 0 {
			input.Limit = aws.Int32(int32(limit))
		}
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return pkgerrors.NewDatabaseError("query messages", err)
		}

		messages = make([]*entities.Message, 0, len(out.Items))
		for _, raw := range out.Items {
			message, err := messageFromAttributes(raw)
			if err != nil {
				return err
			}
			if message != nil {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *ConversationRepository) LatestMessage(ctx context.Context, id valueobjects.PairID) (*entities.Message, error) {
	var message *entities.Message
	err := r.retrier.Do(ctx, "conversation.latest_message", func() error {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: pairPK(id.String())},
				":prefix": &types.AttributeValueMemberS{Value: "MSG#"},
			},
			ScanIndexForward: aws.Bool(false),
			Limit:            aws.Int32(1),
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("query latest message", err)
		}
		if len(out.Items) == 0 {
			message = nil
			return nil
		}
		message, err = messageFromAttributes(out.Items[0])
		return err
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (r *ConversationRepository) CountSince(ctx context.Context, id valueobjects.PairID, afterSeq uint64, excludeSender valueobjects.UserID) (int, error) {
	count := 0
	err := r.retrier.Do(ctx, "conversation.count_since", func() error {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
			FilterExpression:       aws.String("Sender <> :sender"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: pairPK(id.String())},
				":from":   &types.AttributeValueMemberS{Value: messageSK(afterSeq + 1)},
				":to":     &types.AttributeValueMemberS{Value: maxMessageSK},
				":sender": &types.AttributeValueMemberS{Value: excludeSender.String()},
			},
			Select: types.SelectCount,
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("count messages", err)
		}
		count = int(out.Count)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ConversationRepository) SetReadMarker(ctx context.Context, id valueobjects.PairID, user valueobjects.UserID, throughSeq uint64) error {
	return r.retrier.Do(ctx, "conversation.set_read_marker", func() error {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:        aws.String(r.tableName),
			Key:              conversationKey(id),
			UpdateExpression: aws.String("SET ReadMarkers.#u = :seq"),
			ConditionExpression: aws.String(
				"attribute_exists(PK) AND (attribute_not_exists(ReadMarkers.#u) OR ReadMarkers.#u < :seq)"),
			ExpressionAttributeNames: map[string]string{"#u": user.String()},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":seq": &types.AttributeValueMemberN{Value: strconv.FormatUint(throughSeq, 10)},
			},
		})
		if err != nil {
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				// Marker already at or past throughSeq; markers only move forward.
				return nil
			}
			return pkgerrors.NewDatabaseError("set read marker", err)
		}
		return nil
	})
}

func (r *ConversationRepository) ReadMarker(ctx context.Context, id valueobjects.PairID, user valueobjects.UserID) (uint64, error) {
	conversation, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return conversation.ReadMarker(user), nil
}

func (r *ConversationRepository) getItem(ctx context.Context, id valueobjects.PairID) (conversationItem, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            conversationKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return conversationItem{}, pkgerrors.NewDatabaseError("get conversation", err)
	}
	if out.Item == nil {
		return conversationItem{}, pkgerrors.NewNotFoundError("conversation not found")
	}
	var item conversationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return conversationItem{}, pkgerrors.NewDatabaseError("unmarshal conversation", err)
	}
	return item, nil
}

func conversationKey(id valueobjects.PairID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pairPK(id.String())},
		"SK": &types.AttributeValueMemberS{Value: skConv},
	}
}

func conversationFromItem(item conversationItem) (*entities.Conversation, error) {
	pair, err := valueobjects.ParsePairID(item.PairID)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("parse conversation timestamp", err)
	}
	return entities.ReconstructConversation(pair, item.NextSeq, item.ReadMarkers, createdAt)
}

func messageFromAttributes(raw map[string]types.AttributeValue) (*entities.Message, error) {
	var item messageItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal message", err)
	}
	if item.EntityType != "MESSAGE" {
		return nil, nil
	}
	pair, err := valueobjects.ParsePairID(item.PairID)
	if err != nil {
		return nil, err
	}
	sender, err := valueobjects.NewUserID(item.Sender)
	if err != nil {
		return nil, err
	}
	body, err := valueobjects.NewMessageBody(item.Body)
	if err != nil {
		return nil, err
	}
	sentAt, err := time.Parse(time.RFC3339Nano, item.SentAt)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("parse message timestamp", err)
	}
	return entities.ReconstructMessage(pair, sender, body, item.Sequence, sentAt)
}
