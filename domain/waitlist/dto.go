package waitlist

import (
	"encoding/json"
	"strings"

	"github.com/akeren/go-waitlist/internal/models"
	"github.com/akeren/go-waitlist/pkg/constants"
	"github.com/akeren/go-waitlist/pkg/notify"
	"golang.org/x/text/unicode/norm"
)

type CreateWaitlistSignupRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Name        string `json:"name" binding:"required,min=1,max=255"`
	CreatorType string `json:"creatorType" binding:"required,min=1,max=100"`
}

// UnmarshalJSON normalises the fields as they are decoded, so binding
// validation sees " Ada@Example.com " as ada@example.com.
func (r *CreateWaitlistSignupRequest) UnmarshalJSON(data []byte) error {
	type plain CreateWaitlistSignupRequest
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*r = CreateWaitlistSignupRequest{
		Email:       NormalizeEmail(decoded.Email),
		Name:        normalizeText(decoded.Name),
		CreatorType: normalizeText(decoded.CreatorType),
	}
	return nil
}

type WaitlistSignupResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	CreatorType string `json:"creatorType"`
	CreatedAt   string `json:"createdAt"`
}

// ========================================
// Mappers
// ========================================

// NormalizeEmail is the form used for storage and duplicate detection.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func ToWaitlistSignupModel(req *CreateWaitlistSignupRequest) *models.WaitlistSignup {
	if req == nil {
		return nil
	}
	return &models.WaitlistSignup{
		Email:       NormalizeEmail(req.Email),
		Name:        normalizeText(req.Name),
		CreatorType: normalizeText(req.CreatorType),
	}
}

func ToWaitlistSignupResponse(signup *models.WaitlistSignup) WaitlistSignupResponse {
	if signup == nil {
		return WaitlistSignupResponse{}
	}
	return WaitlistSignupResponse{
		ID:          signup.ID,
		Email:       signup.Email,
		Name:        signup.Name,
		CreatorType: signup.CreatorType,
		CreatedAt:   signup.CreatedAt.UTC().Format(constants.ISO8601MillisFormat),
	}
}

func ToSubscriber(signup *models.WaitlistSignup) notify.Subscriber {
	return notify.Subscriber{
		Email:       signup.Email,
		Name:        signup.Name,
		CreatorType: signup.CreatorType,
		SignedUpAt:  signup.CreatedAt,
	}
}
