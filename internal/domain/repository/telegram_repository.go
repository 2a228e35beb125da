package repository

import (
	"context"

	"servicelist-service/internal/domain/entity"
)

// TelegramRepository sends and maintains approval cards in the admin chat.
// All calls are best-effort with respect to the approval workflow: a failure
// is recorded, never propagated as the workflow's failure.
type TelegramRepository interface {
	SendApprovalMessage(ctx context.Context, request *entity.AccessRequest) (*entity.MessageRef, error)
	EditResolvedMessage(ctx context.Context, ref entity.MessageRef, request *entity.AccessRequest, status entity.RequestStatus) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	SetWebhook(ctx context.Context, url, secret string) error
}

// VehicleRepository looks up fleet reference data by normalized plate
type VehicleRepository interface {
	GetByPlate(ctx context.Context, plate string) (*entity.Vehicle, error)
}
