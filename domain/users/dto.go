package users

import (
	"strings"

	"github.com/akeren/go-waitlist/internal/models"
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64,printascii"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func ToUserResponse(user *models.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{ID: user.ID, Username: user.Username}
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
