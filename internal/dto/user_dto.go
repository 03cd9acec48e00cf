package dto

import "github.com/ahmetcoskunkizilkaya/learnauth/internal/models"

type UpdatePreferencesRequest struct {
	Preferences map[string]any `json:"preferences"`
}

type UserResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}
