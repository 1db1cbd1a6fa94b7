package httptransport

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token"`
}

type LoginResponse struct {
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Balance     int64     `json:"balance"`
	NewUser     bool      `json:"new_user"`
	Token       string    `json:"token"`
	TokenExpiry time.Time `json:"token_expiry"`
}
