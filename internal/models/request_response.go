package models

// Request models
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Dept     string `json:"dept" binding:"required"`
	Username string `json:"username"`
	Currency string `json:"currency"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
}

type UpdateProfileRequest struct {
	Avatar *string `json:"avatar"`
	Bio    *string `json:"bio"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
	// Optional reset credential issued by the pwd-reset-token flow.
	PwdResetToken string `json:"pwdResetToken"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type CreateTransferRequest struct {
	Amount int64 `json:"amount" binding:"required"`
	// Sender defaults to the caller; only superusers may name
	// another account.
	SenderUsername string `json:"sender"`
}

// Response models
type TokenResponse struct {
	Status       string `json:"status"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
}

type UserResponse struct {
	Status   string  `json:"status"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Dept     string  `json:"dept"`
	Currency string  `json:"currency"`
	Avatar   *string `json:"avatar,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

type ListUsersResponse struct {
	Status string         `json:"status"`
	Users  []UserResponse `json:"users"`
}

type TransferResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
}

type ListTransactionsResponse struct {
	Status       string              `json:"status"`
	Transactions []TransactionRecord `json:"transactions"`
	Page         int                 `json:"page"`
	PageSize     int                 `json:"pageSize"`
	Total        int64               `json:"total"`
}

type BalanceResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
	Value    int64  `json:"value"`
}

type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
