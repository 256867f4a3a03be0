package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/application/services"
	"peerbridge-backend/infrastructure/config"
	"peerbridge-backend/infrastructure/messaging/eventbridge"
	"peerbridge-backend/infrastructure/persistence/dynamodb"
	"peerbridge-backend/pkg/auth"
	"peerbridge-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *zap.Logger
	TagRepo          ports.TagRepository
	RequestRepo      ports.RequestRepository
	PeerRepo         ports.PeerRepository
	ConversationRepo ports.ConversationRepository
	ProfileRepo      ports.ProfileRepository
	PairLocker       ports.PairLocker
	Publisher        ports.EventPublisher
	Connections      *services.ConnectionService
	Matching         *services.MatchingService
	Messaging        *services.MessagingService
	Inbox            *services.InboxService
	JWTValidator     *auth.JWTValidator
	Metrics          *observability.Metrics
	Registry         *prometheus.Registry
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideRegistry creates the Prometheus registry
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates the service instruments
func ProvideMetrics(registry *prometheus.Registry) *observability.Metrics {
	return observability.NewMetrics(registry)
}

// ProvideRetrier creates the shared storage retrier
func ProvideRetrier(metrics *observability.Metrics, logger *zap.Logger) *dynamodb.Retrier {
	return dynamodb.NewRetrier(metrics, logger)
}

// ProvideTagRepository creates the tag index
func ProvideTagRepository(client *awsdynamodb.Client, cfg *config.Config, retrier *dynamodb.Retrier, logger *zap.Logger) ports.TagRepository {
	return dynamodb.NewTagRepository(client, cfg.DynamoDBTable, retrier, logger)
}

// ProvideRequestRepository creates the connection request repository
func ProvideRequestRepository(client *awsdynamodb.Client, cfg *config.Config, retrier *dynamodb.Retrier, logger *zap.Logger) ports.RequestRepository {
	return dynamodb.NewRequestRepository(client, cfg.DynamoDBTable, retrier, logger)
}

// ProvidePeerRepository creates the peer edge repository
func ProvidePeerRepository(client *awsdynamodb.Client, cfg *config.Config, retrier *dynamodb.Retrier, logger *zap.Logger) ports.PeerRepository {
	return dynamodb.NewPeerRepository(client, cfg.DynamoDBTable, retrier, logger)
}

// ProvideConversationRepository creates the conversation store
func ProvideConversationRepository(client *awsdynamodb.Client, cfg *config.Config, retrier *dynamodb.Retrier, logger *zap.Logger) ports.ConversationRepository {
	return dynamodb.NewConversationRepository(client, cfg.DynamoDBTable, retrier, logger)
}

// ProvideProfileRepository creates the profile reader
func ProvideProfileRepository(client *awsdynamodb.Client, cfg *config.Config, retrier *dynamodb.Retrier, logger *zap.Logger) ports.ProfileRepository {
	return dynamodb.NewProfileRepository(client, cfg.DynamoDBTable, retrier, logger)
}

// ProvidePairLocker creates the pair lock
func ProvidePairLocker(client *awsdynamodb.Client, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) ports.PairLocker {
	return dynamodb.NewPairLocker(client, cfg.DynamoDBTable, metrics, logger)
}

// ProvideEventPublisher creates the outbound event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideConnectionService creates the connection service
func ProvideConnectionService(
	requests ports.RequestRepository,
	peers ports.PeerRepository,
	conversations ports.ConversationRepository,
	locker ports.PairLocker,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.ConnectionService {
	return services.NewConnectionService(requests, peers, conversations, locker, publisher, metrics, logger)
}

// ProvideMatchingService creates the matching service
func ProvideMatchingService(
	tags ports.TagRepository,
	peers ports.PeerRepository,
	requests ports.RequestRepository,
	profiles ports.ProfileRepository,
	logger *zap.Logger,
) *services.MatchingService {
	return services.NewMatchingService(tags, peers, requests, profiles, logger)
}

// ProvideMessagingService creates the messaging service
func ProvideMessagingService(
	conversations ports.ConversationRepository,
	peers ports.PeerRepository,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.MessagingService {
	return services.NewMessagingService(conversations, peers, publisher, metrics, logger)
}

// ProvideInboxService creates the inbox service
func ProvideInboxService(
	conversations ports.ConversationRepository,
	profiles ports.ProfileRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.InboxService {
	return services.NewInboxService(conversations, profiles, publisher, logger)
}

// ProvideJWTValidator creates the token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{"peerbridge-api"},
	})
}
