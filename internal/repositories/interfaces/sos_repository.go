package interfaces

import (
	"context"
	"errors"

	"sosline/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when no record matches, including a cancel on a
// record that is already inactive.
var ErrNotFound = errors.New("sos event not found")

//go:generate go run go.uber.org/mock/mockgen -source=sos_repository.go -destination=../../../mocks/mock_sos_repository.go -package=mocks

// SOSRepository is the event record store. SetCanceled must be an atomic
// compare-and-set on the active flag: of any number of concurrent calls for
// the same id at most one succeeds.
type SOSRepository interface {
	Create(ctx context.Context, event *models.SOSEvent) error
	FindActive(ctx context.Context) ([]*models.SOSEvent, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.SOSEvent, error)
	SetCanceled(ctx context.Context, id primitive.ObjectID, canceledBy string) (*models.SOSEvent, error)
	FindPage(ctx context.Context, page, size int) ([]*models.SOSEvent, int64, error)
}
