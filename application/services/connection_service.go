package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/entities"
	"peerbridge-backend/domain/core/valueobjects"
	"peerbridge-backend/domain/events"
	pkgerrors "peerbridge-backend/pkg/errors"
	"peerbridge-backend/pkg/observability"
)

// pairLockTTL bounds how long a crashed holder can block a pair.
const pairLockTTL = 15 * time.Second

// ConnectionService owns the connection lifecycle: sending requests,
// responding to them, and removing peer edges. Every transition for a
// pair runs under that pair's lock, so the pending-uniqueness and
// crossing-request rules hold even with concurrent callers.
type ConnectionService struct {
	requests      ports.RequestRepository
	peers         ports.PeerRepository
	conversations ports.ConversationRepository
	locker        ports.PairLocker
	publisher     ports.EventPublisher
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewConnectionService creates a connection service.
func NewConnectionService(
	requests ports.RequestRepository,
	peers ports.PeerRepository,
	conversations ports.ConversationRepository,
	locker ports.PairLocker,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		requests:      requests,
		peers:         peers,
		conversations: conversations,
		locker:        locker,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger.Named("connection_service"),
	}
}

// SendRequest sends a connection request from one user to another.
//
// If the recipient already has a pending request toward the sender, the
// two requests cross: the existing request is accepted on the spot and
// returned, so callers can tell from the status that the pair is now
// connected.
func (s *ConnectionService) SendRequest(ctx context.Context, from, to valueobjects.UserID) (*entities.ConnectionRequest, error) {
	pair, err := valueobjects.NewPairID(from, to)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	lock, err := s.locker.Acquire(ctx, pair, from.String(), pairLockTTL)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lock)

	connected, err := s.peers.HasEdge(ctx, pair)
	if err != nil {
		return nil, err
	}
	if connected {
		return nil, pkgerrors.NewConflictError("users are already connected")
	}

	pending, err := s.requests.GetPendingByPair(ctx, pair)
	switch {
	case err == nil:
		if pending.Requester().Equals(from) {
			return nil, pkgerrors.NewConflictError("a connection request is already pending")
		}
		// Crossing requests: the other side already asked. Accept their
		// request instead of stacking a second pending one.
		if err := s.accept(ctx, pending, from); err != nil {
			return nil, err
		}
		s.logger.Info("crossing requests resolved as mutual accept",
			zap.String("pairId", pair.String()),
			zap.String("requestId", pending.ID().String()))
		return pending, nil

	case pkgerrors.IsNotFound(err):
		request, err := entities.NewConnectionRequest(from, to)
		if err != nil {
			return nil, err
		}
		if err := s.requests.Save(ctx, request); err != nil {
			return nil, err
		}
		s.publish(ctx, request.GetUncommittedEvents())
		request.MarkEventsAsCommitted()
		s.metrics.RequestsSent.Inc()
		s.logger.Info("connection request sent",
			zap.String("requestId", request.ID().String()),
			zap.String("pairId", pair.String()))
		return request, nil

	default:
		return nil, err
	}
}

// Respond accepts or rejects a pending request. Only the recipient may
// respond. On accept the peer edge and its conversation are created
// before the call returns.
func (s *ConnectionService) Respond(ctx context.Context, requestID valueobjects.RequestID, actor valueobjects.UserID, accept bool) (*entities.ConnectionRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	lock, err := s.locker.Acquire(ctx, request.Pair(), actor.String(), pairLockTTL)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lock)

	// Reload under the lock; the request may have been resolved by a
	// crossing send while we waited.
	request, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if accept {
		if err := s.accept(ctx, request, actor); err != nil {
			return nil, err
		}
		return request, nil
	}

	if err := request.Reject(actor); err != nil {
		return nil, err
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, err
	}
	s.publish(ctx, request.GetUncommittedEvents())
	request.MarkEventsAsCommitted()
	s.metrics.RequestsRejected.Inc()
	s.logger.Info("connection request rejected",
		zap.String("requestId", request.ID().String()),
		zap.String("pairId", request.Pair().String()))
	return request, nil
}

// accept transitions the request, materializes the edge, and creates the
// conversation. Caller holds the pair lock. Edge save and conversation
// create are idempotent, so a retry after a partial failure converges.
func (s *ConnectionService) accept(ctx context.Context, request *entities.ConnectionRequest, actor valueobjects.UserID) error {
	if err := request.Accept(actor); err != nil {
		return err
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return err
	}

	edge, err := entities.NewPeerEdge(request.Pair())
	if err != nil {
		return err
	}
	if err := s.peers.Save(ctx, edge); err != nil {
		return err
	}

	conversation, err := entities.NewConversation(request.Pair())
	if err != nil {
		return err
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return err
	}

	pending := request.GetUncommittedEvents()
	pending = append(pending, events.NewPeerEdgeCreated(request.Pair(), edge.CreatedAt()))
	s.publish(ctx, pending)
	request.MarkEventsAsCommitted()

	s.metrics.RequestsAccepted.Inc()
	s.logger.Info("connection request accepted",
		zap.String("requestId", request.ID().String()),
		zap.String("pairId", request.Pair().String()))
	return nil
}

// RemovePeer removes the edge between the actor and a peer. The
// conversation and its history are left untouched.
func (s *ConnectionService) RemovePeer(ctx context.Context, actor, peer valueobjects.UserID) error {
	pair, err := valueobjects.NewPairID(actor, peer)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	lock, err := s.locker.Acquire(ctx, pair, actor.String(), pairLockTTL)
	if err != nil {
		return err
	}
	defer s.release(ctx, lock)

	if err := s.peers.Delete(ctx, pair); err != nil {
		return err
	}

	s.publish(ctx, []events.DomainEvent{events.NewPeerEdgeRemoved(pair, actor, time.Now())})
	s.metrics.EdgesRemoved.Inc()
	s.logger.Info("peer edge removed",
		zap.String("pairId", pair.String()),
		zap.String("removedBy", actor.String()))
	return nil
}

// ListPeers returns the actor's peers, most recently connected first,
// decorated with profile snapshots where available.
func (s *ConnectionService) ListPeers(ctx context.Context, actor valueobjects.UserID) ([]*entities.PeerEdge, error) {
	return s.peers.ListByUser(ctx, actor)
}

// ListPendingRequests returns the pending requests addressed to the
// actor, newest first.
func (s *ConnectionService) ListPendingRequests(ctx context.Context, actor valueobjects.UserID) ([]*entities.ConnectionRequest, error) {
	involving, err := s.requests.ListPendingInvolving(ctx, actor)
	if err != nil {
		return nil, err
	}
	incoming := make([]*entities.ConnectionRequest, 0, len(involving))
	for _, request := range involving {
		if request.Recipient().Equals(actor) {
			incoming = append(incoming, request)
		}
	}
	return incoming, nil
}

func (s *ConnectionService) publish(ctx context.Context, pending []events.DomainEvent) {
	if len(pending) == 0 {
		return
	}
	if err := s.publisher.PublishBatch(ctx, pending); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err), zap.Int("count", len(pending)))
	}
}

func (s *ConnectionService) release(ctx context.Context, lock ports.PairLock) {
	if err := lock.Release(ctx); err != nil {
		s.logger.Warn("failed to release pair lock", zap.Error(err))
	}
}
