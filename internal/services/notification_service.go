package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sosline/internal/metrics"
	"sosline/internal/models"
	"sosline/internal/utils"
	"sosline/pkg/logger"
	"sosline/pkg/maps"
	"sosline/pkg/push"
	"sosline/pkg/sms"
)

//go:generate go run go.uber.org/mock/mockgen -source=notification_service.go -destination=../../mocks/mock_notifier.go -package=mocks

// Notifier is the out-of-band side channel for responders that are not
// connected. Calls return immediately; delivery is best-effort.
type Notifier interface {
	NotifyIncoming(ctx context.Context, event *models.SOSEvent)
	NotifyCanceled(ctx context.Context, event *models.SOSEvent)
}

type NotificationService interface {
	Notifier
	// Shutdown waits for in-flight deliveries or until ctx is done.
	Shutdown(ctx context.Context) error
}

type NotificationOptions struct {
	Push          push.PushProvider
	PushTopic     string
	DeviceTokens  []string
	SMS           sms.SMSProvider
	OnCallNumbers []string
	Geocoder      maps.Geocoder
	Timeout       time.Duration
}

type notificationService struct {
	opts    NotificationOptions
	logger  *logger.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup

	// mu orders closed against wg.Add so Shutdown never waits on a group
	// that is still growing.
	mu     sync.Mutex
	closed bool
}

func NewNotificationService(opts NotificationOptions, log *logger.Logger, m *metrics.Metrics) NotificationService {
	if opts.Timeout <= 0 {
		opts.Timeout = utils.NotificationTimeout
	}

	return &notificationService{
		opts:    opts,
		logger:  log.WithField("component", "notifier"),
		metrics: m,
	}
}

func (s *notificationService) NotifyIncoming(ctx context.Context, event *models.SOSEvent) {
	snapshot := *event
	s.dispatch(ctx, func(ctx context.Context) {
		location := s.describeLocation(ctx, &snapshot)
		body := fmt.Sprintf("SOS from %s %s", snapshot.OriginatorContact, location)

		s.sendPush(ctx, "SOS", body, map[string]string{
			"type":      "incoming-sos",
			"id":        snapshot.ID.Hex(),
			"contact":   snapshot.OriginatorContact,
			"latitude":  fmt.Sprintf("%f", snapshot.Latitude),
			"longitude": fmt.Sprintf("%f", snapshot.Longitude),
		})
		s.sendSMS(ctx, body)
	})
}

func (s *notificationService) NotifyCanceled(ctx context.Context, event *models.SOSEvent) {
	snapshot := *event
	s.dispatch(ctx, func(ctx context.Context) {
		body := fmt.Sprintf("SOS from %s was canceled", snapshot.OriginatorContact)

		s.sendPush(ctx, "SOS canceled", body, map[string]string{
			"type": "sos-canceled",
			"id":   snapshot.ID.Hex(),
		})
		s.sendSMS(ctx, body)
	})
}

// Shutdown refuses further notifications and waits for those in flight.
func (s *notificationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch detaches from the caller's cancellation but keeps its values.
func (s *notificationService) dispatch(parent context.Context, fn func(ctx context.Context)) {
	if s.opts.Push == nil && s.opts.SMS == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("Notifier shut down; dropping notification")
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.opts.Timeout)
		defer cancel()

		fn(ctx)
	}()
}

func (s *notificationService) describeLocation(ctx context.Context, event *models.SOSEvent) string {
	if !event.HasLocation() {
		return "(location unavailable)"
	}

	coords := fmt.Sprintf("at %.5f,%.5f", event.Latitude, event.Longitude)
	if s.opts.Geocoder == nil {
		return coords
	}

	resp, err := s.opts.Geocoder.ReverseGeocode(ctx, event.Latitude, event.Longitude)
	if err != nil {
		s.metrics.NotificationFailures.WithLabelValues("geocode").Inc()
		s.logger.WithError(err).WithEventID(event.ID.Hex()).Warn("Reverse geocoding failed")
		return coords
	}

	if best := resp.Best(); best != nil && best.Address != "" {
		return fmt.Sprintf("near %s (%.5f,%.5f)", best.Address, event.Latitude, event.Longitude)
	}
	return coords
}

func (s *notificationService) sendPush(ctx context.Context, title, body string, data map[string]string) {
	if s.opts.Push == nil {
		return
	}

	var requests []*push.NotificationRequest
	if s.opts.PushTopic != "" {
		requests = append(requests, &push.NotificationRequest{
			Topic: s.opts.PushTopic, Title: title, Body: body, Data: data, Priority: "high", CollapseKey: data["id"],
		})
	}
	for _, token := range s.opts.DeviceTokens {
		requests = append(requests, &push.NotificationRequest{
			Token: token, Title: title, Body: body, Data: data, Priority: "high", CollapseKey: data["id"],
		})
	}
	if len(requests) == 0 {
		return
	}

	responses, err := s.opts.Push.SendBulkNotifications(ctx, requests)
	if err != nil {
		s.metrics.NotificationFailures.WithLabelValues("push").Add(float64(len(requests)))
		s.logger.WithError(err).Warn("Push notification failed")
		return
	}

	for _, resp := range responses {
		if resp != nil && !resp.Success {
			s.metrics.NotificationFailures.WithLabelValues("push").Inc()
			s.logger.WithField("token", resp.Token).Warnf("Push notification rejected: %s", resp.Error)
		}
	}
}

func (s *notificationService) sendSMS(ctx context.Context, body string) {
	if s.opts.SMS == nil || len(s.opts.OnCallNumbers) == 0 {
		return
	}

	requests := make([]*sms.SMSRequest, len(s.opts.OnCallNumbers))
	for i, number := range s.opts.OnCallNumbers {
		requests[i] = &sms.SMSRequest{To: number, Message: body, Type: "transactional"}
	}

	responses, err := s.opts.SMS.SendBulkSMS(ctx, requests)
	if err != nil {
		s.metrics.NotificationFailures.WithLabelValues("sms").Add(float64(len(requests)))
		s.logger.WithError(err).Warn("SMS notification failed")
		return
	}

	for i, resp := range responses {
		if resp != nil && resp.Status == "failed" {
			s.metrics.NotificationFailures.WithLabelValues("sms").Inc()
			s.logger.WithField("to", requests[i].To).Warnf("SMS rejected: %s", resp.Error)
		}
	}
}
