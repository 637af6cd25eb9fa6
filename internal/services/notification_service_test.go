package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sosline/internal/metrics"
	"sosline/internal/models"
	"sosline/internal/services"
	"sosline/mocks"
	"sosline/pkg/logger"
	"sosline/pkg/maps"
	"sosline/pkg/push"
	"sosline/pkg/sms"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func shutdown(t *testing.T, svc services.NotificationService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
}

func TestNotificationService_NotifyIncoming(t *testing.T) {
	ctrl := gomock.NewController(t)
	pushProvider := mocks.NewMockPushProvider(ctrl)
	smsProvider := mocks.NewMockSMSProvider(ctrl)
	geocoder := mocks.NewMockGeocoder(ctrl)

	event := &models.SOSEvent{
		ID:                primitive.NewObjectID(),
		OriginatorContact: "+15550001111",
		Latitude:          52.52,
		Longitude:         13.405,
		Active:            true,
	}

	geocoder.EXPECT().ReverseGeocode(gomock.Any(), 52.52, 13.405).Return(&maps.GeocodeResponse{
		Results: []maps.GeocodeResult{{Address: "Alexanderplatz, Berlin"}},
	}, nil)

	pushProvider.EXPECT().SendBulkNotifications(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, requests []*push.NotificationRequest) ([]*push.NotificationResponse, error) {
			require.Len(t, requests, 2)
			assert.Equal(t, "responders", requests[0].Topic)
			assert.Equal(t, "device-1", requests[1].Token)
			for _, r := range requests {
				assert.Equal(t, event.ID.Hex(), r.Data["id"])
				assert.Equal(t, "incoming-sos", r.Data["type"])
				assert.Contains(t, r.Body, "Alexanderplatz")
			}
			return []*push.NotificationResponse{{Success: true}, {Success: false, Token: "device-1", Error: "unregistered"}}, nil
		})

	smsProvider.EXPECT().SendBulkSMS(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, requests []*sms.SMSRequest) ([]*sms.SMSResponse, error) {
			require.Len(t, requests, 1)
			assert.Equal(t, "+15559990000", requests[0].To)
			assert.True(t, strings.HasPrefix(requests[0].Message, "SOS from +15550001111"))
			return []*sms.SMSResponse{{Status: "sent"}}, nil
		})

	m := metrics.New()
	svc := services.NewNotificationService(services.NotificationOptions{
		Push:          pushProvider,
		PushTopic:     "responders",
		DeviceTokens:  []string{"device-1"},
		SMS:           smsProvider,
		OnCallNumbers: []string{"+15559990000"},
		Geocoder:      geocoder,
	}, logger.Discard(), m)

	svc.NotifyIncoming(context.Background(), event)
	shutdown(t, svc)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailures.WithLabelValues("push")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NotificationFailures.WithLabelValues("sms")))
}

func TestNotificationService_SurvivesCallerCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	smsProvider := mocks.NewMockSMSProvider(ctrl)
	geocoder := mocks.NewMockGeocoder(ctrl)

	geocoder.EXPECT().ReverseGeocode(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("quota exceeded"))
	smsProvider.EXPECT().SendBulkSMS(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, requests []*sms.SMSRequest) ([]*sms.SMSResponse, error) {
			assert.NoError(t, ctx.Err())
			assert.Contains(t, requests[0].Message, "at 1.00000,2.00000")
			return nil, errors.New("twilio down")
		})

	m := metrics.New()
	svc := services.NewNotificationService(services.NotificationOptions{
		SMS:           smsProvider,
		OnCallNumbers: []string{"+1", "+2"},
		Geocoder:      geocoder,
	}, logger.Discard(), m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.NotifyIncoming(ctx, &models.SOSEvent{ID: primitive.NewObjectID(), Latitude: 1, Longitude: 2})
	shutdown(t, svc)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailures.WithLabelValues("geocode")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationFailures.WithLabelValues("sms")))
}

func TestNotificationService_NotifyCanceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	pushProvider := mocks.NewMockPushProvider(ctrl)
	geocoder := mocks.NewMockGeocoder(ctrl)
	geocoder.EXPECT().ReverseGeocode(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	id := primitive.NewObjectID()
	pushProvider.EXPECT().SendBulkNotifications(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, requests []*push.NotificationRequest) ([]*push.NotificationResponse, error) {
			require.Len(t, requests, 1)
			assert.Equal(t, "sos-canceled", requests[0].Data["type"])
			assert.Equal(t, id.Hex(), requests[0].CollapseKey)
			return []*push.NotificationResponse{{Success: true}}, nil
		})

	svc := services.NewNotificationService(services.NotificationOptions{
		Push:      pushProvider,
		PushTopic: "responders",
		Geocoder:  geocoder,
	}, logger.Discard(), metrics.New())

	svc.NotifyCanceled(context.Background(), &models.SOSEvent{ID: id, OriginatorContact: "+1"})
	shutdown(t, svc)
}

func TestNotificationService_NoChannelsIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	geocoder := mocks.NewMockGeocoder(ctrl)
	geocoder.EXPECT().ReverseGeocode(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	svc := services.NewNotificationService(services.NotificationOptions{Geocoder: geocoder}, logger.Discard(), metrics.New())
	svc.NotifyIncoming(context.Background(), &models.SOSEvent{ID: primitive.NewObjectID(), Latitude: 1, Longitude: 1})
	shutdown(t, svc)
}

func TestNotificationService_DropsAfterShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	pushProvider := mocks.NewMockPushProvider(ctrl)
	smsProvider := mocks.NewMockSMSProvider(ctrl)

	pushProvider.EXPECT().SendBulkNotifications(gomock.Any(), gomock.Any()).Times(0)
	smsProvider.EXPECT().SendBulkSMS(gomock.Any(), gomock.Any()).Times(0)

	svc := services.NewNotificationService(services.NotificationOptions{
		Push:          pushProvider,
		PushTopic:     "responders",
		SMS:           smsProvider,
		OnCallNumbers: []string{"+15559990000"},
	}, logger.Discard(), metrics.New())
	shutdown(t, svc)

	event := &models.SOSEvent{ID: primitive.NewObjectID(), OriginatorContact: "+15550001111", Active: true}
	svc.NotifyIncoming(context.Background(), event)
	svc.NotifyCanceled(context.Background(), event)

	// Nothing was queued, so a second drain returns at once.
	shutdown(t, svc)
}
