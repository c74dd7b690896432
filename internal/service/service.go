package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/ledger"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/repository"
)

// Token scopes carried in the "scope" claim.
const (
	ScopeAccessToken  = "access_token"
	ScopeRefreshToken = "refresh_token"
	ScopePwdReset     = "pwd_reset"
)

var (
	// ErrInvalidCredentials is returned on failed logins and bad tokens.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("user with this username or email already exists")

	// ErrNoData is returned for update requests carrying no fields.
	ErrNoData = errors.New("bad request, no data informed")
)

// PasswordResetQueue hands password-reset jobs to the background
// mailer. Implemented by the redis-backed queue in internal/worker.
type PasswordResetQueue interface {
	EnqueuePasswordReset(ctx context.Context, username, email string) error
}

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.TokenResponse, error)
	ResolveAccount(ctx context.Context, username string) (*models.User, error)

	// Account operations
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.UserResponse, error)
	ListUsers(ctx context.Context) (*models.ListUsersResponse, error)
	GetUser(ctx context.Context, username string) (*models.UserResponse, error)
	UpdateProfile(ctx context.Context, caller *models.User, username string, req models.UpdateProfileRequest) (*models.UserResponse, error)
	ChangePassword(ctx context.Context, caller *models.User, username string, req models.ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, email string) error

	// Ledger operations
	CreateTransfer(ctx context.Context, caller *models.User, recipientUsername string, req models.CreateTransferRequest) (*models.TransferResponse, error)
	ListTransactions(ctx context.Context, caller *models.User, filter repository.TransactionFilter) (*models.ListTransactionsResponse, error)
	GetBalance(ctx context.Context, caller *models.User, username string) (*models.BalanceResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo            repository.Repository
	resetQueue      PasswordResetQueue
	jwtSecret       []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(
	repo repository.Repository,
	resetQueue PasswordResetQueue,
	jwtSecret string,
	accessDuration, refreshDuration time.Duration,
) Service {
	return &DefaultService{
		repo:            repo,
		resetQueue:      resetQueue,
		jwtSecret:       []byte(jwtSecret),
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}
}

// Authentication methods
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokenPair(user)
}

func (s *DefaultService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.TokenResponse, error) {
	username, err := s.ValidateToken(req.RefreshToken, ScopeRefreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokenPair(user)
}

// ResolveAccount loads the account behind an authenticated username.
// Returns ledger.ErrNotFound when the account no longer exists.
func (s *DefaultService) ResolveAccount(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, ledger.ErrNotFound
	}
	return user, nil
}

// Account operations
func (s *DefaultService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.UserResponse, error) {
	username := req.Username
	if username == "" {
		username = models.GenerateUsername(req.Name)
	}

	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}
	if existing != nil {
		return nil, ErrConflict
	}

	existing, err = s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}
	if existing != nil {
		return nil, ErrConflict
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	user := &models.User{
		Username: username,
		Email:    req.Email,
		Name:     req.Name,
		Dept:     req.Dept,
		Currency: currency,
		Password: string(hashedPassword),
	}
	if req.Avatar != "" {
		user.Avatar = &req.Avatar
	}
	if req.Bio != "" {
		user.Bio = &req.Bio
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	resp := userResponse(user)
	return &resp, nil
}

func (s *DefaultService) ListUsers(ctx context.Context) (*models.ListUsersResponse, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	resp := &models.ListUsersResponse{
		Status: "success",
		Users:  make([]models.UserResponse, 0, len(users)),
	}
	for i := range users {
		resp.Users = append(resp.Users, userResponse(&users[i]))
	}

	return resp, nil
}

func (s *DefaultService) GetUser(ctx context.Context, username string) (*models.UserResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, ledger.ErrNotFound
	}

	resp := userResponse(user)
	return &resp, nil
}

// UpdateProfile changes the mutable profile fields (avatar, bio) of an
// account. Allowed for the account itself or a superuser.
func (s *DefaultService) UpdateProfile(
	ctx context.Context,
	caller *models.User,
	username string,
	req models.UpdateProfileRequest,
) (*models.UserResponse, error) {
	if req.Avatar == nil && req.Bio == nil {
		return nil, ErrNoData
	}

	target, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if target == nil {
		return nil, ledger.ErrNotFound
	}

	if caller.ID != target.ID && !caller.IsSuperuser() {
		return nil, ledger.ErrForbidden
	}

	if err := s.repo.UpdateProfile(ctx, target.ID, req.Avatar, req.Bio); err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	updated, err := s.repo.GetUserByID(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	resp := userResponse(updated)
	return &resp, nil
}

// ChangePassword sets a new password for the target account. The
// operation is granted when any of these holds:
//   - a valid reset token scoped to the target is presented
//   - the caller is the target account
//   - the caller is a superuser
func (s *DefaultService) ChangePassword(
	ctx context.Context,
	caller *models.User,
	username string,
	req models.ChangePasswordRequest,
) error {
	target, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}
	if target == nil {
		return ledger.ErrNotFound
	}

	allowed := false
	if req.PwdResetToken != "" {
		subject, err := s.ValidateToken(req.PwdResetToken, ScopePwdReset)
		allowed = err == nil && subject == target.Username
	}
	if !allowed && caller != nil {
		allowed = caller.ID == target.ID || caller.IsSuperuser()
	}
	if !allowed {
		return ledger.ErrForbidden
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, target.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	return nil
}

// RequestPasswordReset enqueues a reset email for the given address.
// Always reports success so the endpoint cannot be used to probe for
// registered emails.
func (s *DefaultService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}
	if user == nil || s.resetQueue == nil {
		return nil
	}

	if err := s.resetQueue.EnqueuePasswordReset(ctx, user.Username, user.Email); err != nil {
		return fmt.Errorf("error enqueueing reset email: %w", err)
	}

	return nil
}

// Ledger operations

// CreateTransfer validates and executes a transfer of points to the
// named recipient. The sender is the caller, unless the caller is a
// superuser acting on behalf of another account.
func (s *DefaultService) CreateTransfer(
	ctx context.Context,
	caller *models.User,
	recipientUsername string,
	req models.CreateTransferRequest,
) (*models.TransferResponse, error) {
	recipient, err := s.repo.GetUserByUsername(ctx, recipientUsername)
	if err != nil {
		return nil, fmt.Errorf("error getting recipient: %w", err)
	}
	if recipient == nil {
		return nil, ledger.ErrNotFound
	}

	sender := caller
	if req.SenderUsername != "" && req.SenderUsername != caller.Username {
		// Points leaving an account the caller does not own require
		// superuser rights.
		if !caller.IsSuperuser() {
			return nil, ledger.ErrForbidden
		}
		sender, err = s.repo.GetUserByUsername(ctx, req.SenderUsername)
		if err != nil {
			return nil, fmt.Errorf("error getting sender: %w", err)
		}
		if sender == nil {
			return nil, ledger.ErrNotFound
		}
	}

	if req.Amount <= 0 {
		return nil, ledger.ErrNonPositiveAmount
	}

	if _, err := s.repo.Transfer(ctx, recipient, sender, req.Amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) || errors.Is(err, ledger.ErrNonPositiveAmount) {
			return nil, err
		}
		return nil, fmt.Errorf("error executing transfer: %w", err)
	}

	return &models.TransferResponse{
		Status:    "success",
		Message:   "Transaction added",
		Recipient: recipient.Username,
		Sender:    sender.Username,
		Amount:    req.Amount,
	}, nil
}

// ListTransactions returns the transaction log filtered and paginated.
// Non-superusers only ever see transactions they take part in.
func (s *DefaultService) ListTransactions(
	ctx context.Context,
	caller *models.User,
	filter repository.TransactionFilter,
) (*models.ListTransactionsResponse, error) {
	if !caller.IsSuperuser() {
		filter.InvolvingUserID = caller.ID
	}

	records, total, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}

	page := 1
	pageSize := len(records)
	if filter.Limit > 0 {
		page = filter.Offset/filter.Limit + 1
		pageSize = filter.Limit
	}

	if records == nil {
		records = []models.TransactionRecord{}
	}

	return &models.ListTransactionsResponse{
		Status:       "success",
		Transactions: records,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
	}, nil
}

// GetBalance returns the materialized balance of an account. Only the
// account itself or a superuser may read it.
func (s *DefaultService) GetBalance(
	ctx context.Context,
	caller *models.User,
	username string,
) (*models.BalanceResponse, error) {
	target, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if target == nil {
		return nil, ledger.ErrNotFound
	}

	if caller.ID != target.ID && !caller.IsSuperuser() {
		return nil, ledger.ErrForbidden
	}

	value, err := s.repo.GetBalance(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting balance: %w", err)
	}

	return &models.BalanceResponse{
		Status:   "success",
		Username: target.Username,
		Value:    value,
	}, nil
}

// Helper methods
func (s *DefaultService) issueTokenPair(user *models.User) (*models.TokenResponse, error) {
	accessToken, err := s.generateJWT(user.Username, ScopeAccessToken, s.accessDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	refreshToken, err := s.generateJWT(user.Username, ScopeRefreshToken, s.refreshDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.TokenResponse{
		Status:       "success",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.accessDuration.Seconds()),
	}, nil
}

func (s *DefaultService) generateJWT(username, scope string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   username,
		"scope": scope,
		"exp":   now.Add(duration).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken parses a token, checks its scope and returns the
// subject username.
func (s *DefaultService) ValidateToken(tokenString, requiredScope string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCredentials
	}

	if scope, _ := claims["scope"].(string); scope != requiredScope {
		return "", ErrInvalidCredentials
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", ErrInvalidCredentials
	}

	return subject, nil
}

func userResponse(user *models.User) models.UserResponse {
	return models.UserResponse{
		Status:   "success",
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Dept:     user.Dept,
		Currency: user.Currency,
		Avatar:   user.Avatar,
		Bio:      user.Bio,
	}
}
