//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"peerbridge-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideRegistry,
	ProvideMetrics,
	ProvideRetrier,
	ProvideTagRepository,
	ProvideRequestRepository,
	ProvidePeerRepository,
	ProvideConversationRepository,
	ProvideProfileRepository,
	ProvidePairLocker,
	ProvideEventPublisher,
	ProvideConnectionService,
	ProvideMatchingService,
	ProvideMessagingService,
	ProvideInboxService,
	ProvideJWTValidator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
