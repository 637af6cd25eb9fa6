package push

import "context"

//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../../mocks/mock_push_provider.go -package=mocks

type PushProvider interface {
	SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error)
	SendBulkNotifications(ctx context.Context, requests []*NotificationRequest) ([]*NotificationResponse, error)
}

// NotificationRequest targets either a single device Token or a Topic.
type NotificationRequest struct {
	Token       string            `json:"token"`
	Topic       string            `json:"topic,omitempty"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Sound       string            `json:"sound,omitempty"`
	Priority    string            `json:"priority,omitempty"` // high, normal
	TTL         int               `json:"ttl,omitempty"`      // seconds
	CollapseKey string            `json:"collapse_key,omitempty"`
}

type NotificationResponse struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Token     string `json:"token,omitempty"`
}
