package services

import (
	"context"
	"errors"
	"fmt"

	"sosline/internal/metrics"
	"sosline/internal/models"
	"sosline/internal/repositories/interfaces"
	"sosline/internal/utils"
	"sosline/pkg/logger"
	"sosline/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SOSService owns the lifecycle of SOS events: it persists an offer before
// anyone hears of it, fans it out to responders, and announces a cancel
// only after the store has committed it.
type SOSService interface {
	websocket.EventHandler

	CancelEvent(ctx context.Context, identity websocket.Identity, id string) (*models.SOSEvent, error)
	ListActive(ctx context.Context) ([]*models.SOSEvent, error)
	ListHistory(ctx context.Context, page, pageSize int) (*models.SOSPage, error)
	GetEvent(ctx context.Context, id string) (*models.SOSEvent, error)
}

type sosService struct {
	hub       *websocket.Hub
	sosRepo   interfaces.SOSRepository
	policy    AccessPolicy
	notifier  Notifier
	dedup     OfferDeduplicator
	publisher RoomPublisher
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewSOSService wires the engine. notifier, dedup and publisher may be nil
// to run without the side channel, replay protection or other instances.
func NewSOSService(
	hub *websocket.Hub,
	sosRepo interfaces.SOSRepository,
	policy AccessPolicy,
	notifier Notifier,
	dedup OfferDeduplicator,
	publisher RoomPublisher,
	log *logger.Logger,
	m *metrics.Metrics,
) SOSService {
	return &sosService{
		hub:       hub,
		sosRepo:   sosRepo,
		policy:    policy,
		notifier:  notifier,
		dedup:     dedup,
		publisher: publisher,
		logger:    log.WithField("component", "sos_service"),
		metrics:   m,
	}
}

func (s *sosService) Connected(session *websocket.Session) {
	s.metrics.ConnectedSessions.Inc()

	if s.policy.IsResponder(session.Identity) {
		if err := s.hub.Join(session, websocket.ResponderRoom); err != nil && !errors.Is(err, websocket.ErrSessionClosed) {
			s.logger.WithSessionID(session.ID).WithError(err).Warn("Failed to join responders room")
		}
	}
}

func (s *sosService) Disconnected(session *websocket.Session) {
	s.metrics.ConnectedSessions.Dec()
}

func (s *sosService) Originate(ctx context.Context, session *websocket.Session, offer *websocket.SOSOffer) error {
	log := s.logger.WithContext(ctx).WithUserID(session.Identity.UserID)

	contact := offer.Contact
	if contact == "" {
		contact = session.Identity.Contact
	}
	if utils.IsValidPhone(contact) {
		contact = utils.NormalizePhone(contact)
	}

	claimed := false
	if offer.CorrelationToken != "" && s.dedup != nil {
		existingID, ok, err := s.dedup.Claim(ctx, session.Identity.UserID, offer.CorrelationToken)
		switch {
		case err != nil:
			log.WithError(err).Warn("Offer de-duplication unavailable, accepting offer")
		case !ok && existingID == "":
			return ErrOfferInFlight
		case !ok:
			s.metrics.DuplicateOffers.Inc()
			log.WithEventID(existingID).Info("Repeated offer answered with stored id")
			return s.acknowledge(session, existingID, offer.CorrelationToken)
		default:
			claimed = true
		}
	}

	event := &models.SOSEvent{
		OriginatorID:      session.Identity.UserID,
		OriginatorContact: contact,
		Latitude:          offer.Latitude,
		Longitude:         offer.Longitude,
	}

	if err := s.sosRepo.Create(ctx, event); err != nil {
		s.metrics.PersistenceFailures.WithLabelValues("create").Inc()
		log.WithError(err).Error("Failed to persist sos event")
		if claimed {
			if rerr := s.dedup.Release(context.WithoutCancel(ctx), session.Identity.UserID, offer.CorrelationToken); rerr != nil {
				log.WithError(rerr).Warn("Failed to release offer token")
			}
		}
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	id := event.ID.Hex()
	s.metrics.EventsOriginated.Inc()

	if claimed {
		if err := s.dedup.Complete(ctx, session.Identity.UserID, offer.CorrelationToken, id); err != nil {
			log.WithError(err).Warn("Failed to record offer token")
		}
	}

	if err := s.acknowledge(session, id, offer.CorrelationToken); err != nil {
		// The record exists; responders still need to hear about it.
		log.WithEventID(id).WithError(err).Warn("Originator left before acknowledgment")
	}

	s.broadcast(ctx, []string{websocket.ResponderRoom}, websocket.TypeIncomingSOS, websocket.IncomingSOS{
		ID:        id,
		Contact:   event.OriginatorContact,
		Latitude:  event.Latitude,
		Longitude: event.Longitude,
		CreatedAt: event.CreatedAt,
	}, nil)

	if s.notifier != nil {
		s.notifier.NotifyIncoming(ctx, event)
	}

	log.LogSOSEvent(id, utils.EventSOSOriginated, map[string]interface{}{
		"session_id":   session.ID,
		"has_location": event.HasLocation(),
	})

	return nil
}

// acknowledge sends sos-saved to the originator and subscribes it to the
// event room so it hears the cancel.
func (s *sosService) acknowledge(session *websocket.Session, id, token string) error {
	frame, err := websocket.Encode(websocket.TypeSOSSaved, websocket.SOSSaved{ID: id, CorrelationToken: token})
	if err != nil {
		return err
	}
	if err := session.Send(frame); err != nil {
		return err
	}
	return s.hub.Join(session, id)
}

func (s *sosService) JoinRoom(ctx context.Context, session *websocket.Session, room string) error {
	if err := s.policy.CanJoin(ctx, session.Identity, room); err != nil {
		return err
	}
	return s.hub.Join(session, room)
}

func (s *sosService) LeaveRoom(session *websocket.Session, room string) error {
	s.hub.Leave(session, room)
	return nil
}

func (s *sosService) RelayIceCandidate(ctx context.Context, session *websocket.Session, candidate *websocket.IceCandidate) error {
	room := candidate.TargetRoom
	if err := s.policy.CanRelay(ctx, session.Identity, room, session.InRoom(room)); err != nil {
		return err
	}

	s.broadcast(ctx, []string{room}, websocket.TypeIceCandidate, candidate, session)
	return nil
}

func (s *sosService) Cancel(ctx context.Context, session *websocket.Session, id string) error {
	_, err := s.CancelEvent(ctx, session.Identity, id)
	return err
}

func (s *sosService) CancelEvent(ctx context.Context, identity websocket.Identity, id string) (*models.SOSEvent, error) {
	if err := s.policy.CanCancel(ctx, identity, id); err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	event, err := s.sosRepo.SetCanceled(ctx, oid, identity.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.metrics.PersistenceFailures.WithLabelValues("cancel").Inc()
		s.logger.WithContext(ctx).WithEventID(id).WithError(err).Error("Failed to cancel sos event")
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	s.metrics.EventsCanceled.Inc()

	// The store has committed; only now may anyone hear about it.
	s.broadcast(ctx, []string{id, websocket.ResponderRoom}, websocket.TypeSOSCanceled, websocket.SOSCanceled{ID: id}, nil)

	if s.notifier != nil {
		s.notifier.NotifyCanceled(ctx, event)
	}

	s.logger.WithContext(ctx).LogSOSEvent(id, utils.EventSOSCanceled, map[string]interface{}{
		"canceled_by": identity.UserID,
	})

	return event, nil
}

func (s *sosService) ListActive(ctx context.Context) ([]*models.SOSEvent, error) {
	events, err := s.sosRepo.FindActive(ctx)
	if err != nil {
		s.metrics.PersistenceFailures.WithLabelValues("list_active").Inc()
		return nil, fmt.Errorf("failed to list active sos events: %w", err)
	}
	return events, nil
}

func (s *sosService) ListHistory(ctx context.Context, page, pageSize int) (*models.SOSPage, error) {
	events, total, err := s.sosRepo.FindPage(ctx, page, pageSize)
	if err != nil {
		s.metrics.PersistenceFailures.WithLabelValues("list_history").Inc()
		return nil, fmt.Errorf("failed to list sos history: %w", err)
	}
	return &models.SOSPage{Events: events, Total: total}, nil
}

func (s *sosService) GetEvent(ctx context.Context, id string) (*models.SOSEvent, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrBadRequest
	}

	event, err := s.sosRepo.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sos event: %w", err)
	}
	return event, nil
}

// broadcast delivers to local members and forwards to other instances.
func (s *sosService) broadcast(ctx context.Context, rooms []string, msgType string, data interface{}, exclude *websocket.Session) {
	frame, err := websocket.Encode(msgType, data)
	if err != nil {
		s.logger.WithError(err).Errorf("Failed to encode %s", msgType)
		return
	}

	delivered := s.hub.BroadcastRooms(rooms, frame, exclude)
	s.metrics.Broadcasts.WithLabelValues(msgType).Add(float64(delivered))

	if s.publisher != nil {
		if err := s.publisher.Publish(context.WithoutCancel(ctx), rooms, frame); err != nil {
			s.logger.WithError(err).Warnf("Failed to relay %s to other instances", msgType)
		}
	}
}
