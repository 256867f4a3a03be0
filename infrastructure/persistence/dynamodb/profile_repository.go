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

// ProfileRepository reads profile snapshots written by the profile
// subsystem into the shared table. Read-only on our side.
type ProfileRepository struct {
	client    *dynamodb.Client
	tableName string
	retrier   *Retrier
	logger    *zap.Logger
}

// NewProfileRepository creates a DynamoDB-backed profile reader.
func NewProfileRepository(client *dynamodb.Client, tableName string, retrier *Retrier, logger *zap.Logger) ports.ProfileRepository {
	return &ProfileRepository{
		client:    client,
		tableName: tableName,
		retrier:   retrier,
		logger:    logger,
	}
}

type profileItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	UserID       string `dynamodbav:"UserID"`
	Username     string `dynamodbav:"Username"`
	DisplayName  string `dynamodbav:"DisplayName,omitempty"`
	Pronouns     string `dynamodbav:"Pronouns,omitempty"`
	ProfileLink  string `dynamodbav:"ProfileLink,omitempty"`
	ProfileImage string `dynamodbav:"ProfileImage,omitempty"`
	AboutMe      string `dynamodbav:"AboutMe,omitempty"`
}

func (r *ProfileRepository) GetByID(ctx context.Context, user valueobjects.UserID) (*ports.Profile, error) {
	var profile *ports.Profile
	err := r.retrier.Do(ctx, "profile.get", func() error {
		out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userKey(user.String())},
				"SK": &types.AttributeValueMemberS{Value: skProfile},
			},
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("get profile", err)
		}
		if out.Item == nil {
			return pkgerrors.NewNotFoundError("profile not found")
		}
		profile, err = profileFromAttributes(out.Item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *ProfileRepository) GetBatch(ctx context.Context, users []valueobjects.UserID) (map[string]*ports.Profile, error) {
	result := make(map[string]*ports.Profile, len(users))
	if len(users) == 0 {
		return result, nil
	}

	// BatchGetItem caps at 100 keys per call.
	const batchSize = 100
	for start := 0; start < len(users); start += batchSize {
		end := start + batchSize
		if end > len(users) {
			end = len(users)
		}

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, user := range users[start:end] {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userKey(user.String())},
				"SK": &types.AttributeValueMemberS{Value: skProfile},
			})
		}

		err := r.retrier.Do(ctx, "profile.get_batch", func() error {
			out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: map[string]types.KeysAndAttributes{
					r.tableName: {Keys: keys},
				},
			})
			if err != nil {
				return pkgerrors.NewDatabaseError("batch get profiles", err)
			}
			for _, raw := range out.Responses[r.tableName] {
				profile, err := profileFromAttributes(raw)
				if err != nil {
					return err
				}
				result[profile.UserID.String()] = profile
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func profileFromAttributes(raw map[string]types.AttributeValue) (*ports.Profile, error) {
	var item profileItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal profile", err)
	}
	user, err := valueobjects.NewUserID(item.UserID)
	if err != nil {
		return nil, err
	}
	return &ports.Profile{
		UserID:       user,
		Username:     item.Username,
		DisplayName:  item.DisplayName,
		Pronouns:     item.Pronouns,
		ProfileLink:  item.ProfileLink,
		ProfileImage: item.ProfileImage,
		AboutMe:      item.AboutMe,
	}, nil
}
