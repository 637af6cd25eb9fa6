package sms

import "context"

//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../../mocks/mock_sms_provider.go -package=mocks

type SMSProvider interface {
	SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error)
	SendBulkSMS(ctx context.Context, requests []*SMSRequest) ([]*SMSResponse, error)
}

type SMSRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
	Type    string `json:"type"` // transactional, promotional
}

type SMSResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// sendEach sends requests one by one; a failure is recorded in its response
// and does not stop the rest.
func sendEach(ctx context.Context, p SMSProvider, requests []*SMSRequest) []*SMSResponse {
	responses := make([]*SMSResponse, len(requests))

	for i, req := range requests {
		resp, err := p.SendSMS(ctx, req)
		if err != nil {
			resp = &SMSResponse{
				Status: "failed",
				Error:  err.Error(),
			}
		}
		responses[i] = resp
	}

	return responses
}
