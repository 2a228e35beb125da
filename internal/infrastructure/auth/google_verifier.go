package auth

import (
	"context"
	"fmt"
	"strings"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/utils"

	"google.golang.org/api/idtoken"
)

// GoogleVerifier validates Google ID tokens presented by the client and maps
// them onto the identity snapshot the access workflow stores
type GoogleVerifier struct {
	audience string
	logger   logger.Logger
}

// NewGoogleVerifier creates a new verifier for the given OAuth client ID
func NewGoogleVerifier(audience string, logger logger.Logger) *GoogleVerifier {
	return &GoogleVerifier{
		audience: audience,
		logger:   logger,
	}
}

// Verify validates the raw bearer token and returns the caller identity
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*entity.Identity, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.audience)
	if err != nil {
		return nil, fmt.Errorf("invalid identity token: %w", err)
	}

	email := strings.TrimSpace(claimString(payload.Claims, "email"))

	return &entity.Identity{
		UID:             payload.Subject,
		Email:           email,
		EmailNormalized: utils.NormalizeEmail(email),
		DisplayName:     strings.TrimSpace(claimString(payload.Claims, "name")),
		PhotoURL:        strings.TrimSpace(claimString(payload.Claims, "picture")),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	value, _ := claims[key].(string)
	return value
}
