package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// TagRepository implements ports.TagRepository on DynamoDB. Each
// membership is one item under the user partition, mirrored into GSI1
// under the tag, which gives the tag-to-users direction.
type TagRepository struct {
	client    *dynamodb.Client
	tableName string
	retrier   *Retrier
	logger    *zap.Logger
}

// NewTagRepository creates a DynamoDB-backed tag index.
func NewTagRepository(client *dynamodb.Client, tableName string, retrier *Retrier, logger *zap.Logger) ports.TagRepository {
	return &TagRepository{
		client:    client,
		tableName: tableName,
		retrier:   retrier,
		logger:    logger,
	}
}

type tagItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	Tag        string `dynamodbav:"Tag"`
}

func (r *TagRepository) AddTag(ctx context.Context, user valueobjects.UserID, tag string) error {
	item := tagItem{
		PK:         userKey(user.String()),
		SK:         tagKey(tag),
		GSI1PK:     tagKey(tag),
		GSI1SK:     userKey(user.String()),
		EntityType: "TAG",
		UserID:     user.String(),
		Tag:        tag,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal tag", err)
	}
	return r.retrier.Do(ctx, "tag.add", func() error {
		_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      av,
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("add tag", err)
		}
		return nil
	})
}

func (r *TagRepository) RemoveTag(ctx context.Context, user valueobjects.UserID, tag string) error {
	return r.retrier.Do(ctx, "tag.remove", func() error {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userKey(user.String())},
				"SK": &types.AttributeValueMemberS{Value: tagKey(tag)},
			},
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("remove tag", err)
		}
		return nil
	})
}

func (r *TagRepository) ReplaceTags(ctx context.Context, user valueobjects.UserID, tags []string) error {
	current, err := r.TagsOf(ctx, user)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(tags))
	for _, tag := range tags {
		keep[tag] = true
	}
	existing := make(map[string]bool, len(current))
	for _, tag := range current {
		existing[tag] = true
	}

	for _, tag := range current {
		if !keep[tag] {
			if err := r.RemoveTag(ctx, user, tag); err != nil {
				return err
			}
		}
	}
	for _, tag := range tags {
		if !existing[tag] {
			if err := r.AddTag(ctx, user, tag); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *TagRepository) TagsOf(ctx context.Context, user valueobjects.UserID) ([]string, error) {
	var tags []string
	err := r.retrier.Do(ctx, "tag.list", func() error {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: userKey(user.String())},
				":prefix": &types.AttributeValueMemberS{Value: "TAG#"},
			},
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("query tags", err)
		}
		tags = make([]string, 0, len(out.Items))
		for _, raw := range out.Items {
			var item tagItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return pkgerrors.NewDatabaseError("unmarshal tag", err)
			}
			tags = append(tags, item.Tag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *TagRepository) UsersWithAnyTag(ctx context.Context, tags []string) ([]valueobjects.UserID, error) {
	seen := make(map[string]bool)
	var users []valueobjects.UserID
	for _, tag := range tags {
		err := r.retrier.Do(ctx, "tag.users", func() error {
			out, err := r.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.tableName),
				IndexName:              aws.String(gsi1Name),
				KeyConditionExpression: aws.String("GSI1PK = :pk"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk": &types.AttributeValueMemberS{Value: tagKey(tag)},
				},
			})
			if err != nil {
				return pkgerrors.NewDatabaseError("query tag users", err)
			}
			for _, raw := range out.Items {
				var item tagItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return pkgerrors.NewDatabaseError("unmarshal tag", err)
				}
				if seen[item.UserID] {
					continue
				}
				seen[item.UserID] = true
				user, err := valueobjects.NewUserID(item.UserID)
				if err != nil {
					continue
				}
				users = append(users, user)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return users, nil
}
