package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/ledger"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/repository"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/service"
)

// Handler holds the HTTP handlers for all API routes
type Handler struct {
	svc         service.Service
	idempotency gin.HandlerFunc
}

// NewHandler creates a new API handler. The idempotency middleware is
// optional and only guards the transfer endpoint.
func NewHandler(svc service.Service, idempotency gin.HandlerFunc) *Handler {
	return &Handler{
		svc:         svc,
		idempotency: idempotency,
	}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/token", h.Login)
		auth.POST("/refresh-token", h.RefreshToken)
	}
	api.POST("/users/pwd-reset-token", h.RequestPasswordReset)
	api.POST("/users/:username/password", OptionalAuthMiddleware(h.svc), h.ChangePassword)

	// Authenticated routes
	authed := api.Group("", AuthMiddleware(h.svc))
	{
		authed.GET("/users", h.ListUsers)
		authed.GET("/users/:username", h.GetUser)
		authed.PATCH("/users/:username", h.UpdateProfile)
		authed.GET("/users/:username/balance", h.GetBalance)
		authed.POST("/users", SuperuserMiddleware(), h.CreateUser)

		transfers := authed.Group("/transactions")
		if h.idempotency != nil {
			transfers.POST("/:username", h.idempotency, h.CreateTransfer)
		} else {
			transfers.POST("/:username", h.CreateTransfer)
		}
		transfers.GET("", h.ListTransactions)
	}

	RegisterMetricsRoute(router)
}

// Authentication handlers
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.svc.RefreshToken(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// User handlers
func (h *Handler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListUsers(c *gin.Context) {
	resp, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetUser(c *gin.Context) {
	resp, err := h.svc.GetUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.svc.UpdateProfile(c.Request.Context(), CurrentUser(c), c.Param("username"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	err := h.svc.ChangePassword(c.Request.Context(), CurrentUser(c), c.Param("username"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Password updated",
	})
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "If the email is registered, a reset message was sent",
	})
}

// Ledger handlers
func (h *Handler) CreateTransfer(c *gin.Context) {
	var req models.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	transfersAttempted.Inc()

	resp, err := h.svc.CreateTransfer(c.Request.Context(), CurrentUser(c), c.Param("username"), req)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) || errors.Is(err, ledger.ErrNonPositiveAmount) {
			transfersRejected.Inc()
		}
		respondError(c, err)
		return
	}

	transfersCommitted.Inc()
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orderBy := c.Query("orderBy")
	switch orderBy {
	case "", "created_at", "-created_at", "amount", "-amount":
	default:
		badRequest(c, "Invalid orderBy value")
		return
	}

	filter := repository.TransactionFilter{
		RecipientUsername: c.Query("recipient"),
		SenderUsername:    c.Query("sender"),
		OrderBy:           orderBy,
		Limit:             pageSize,
		Offset:            (page - 1) * pageSize,
	}

	resp, err := h.svc.ListTransactions(c.Request.Context(), CurrentUser(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetBalance(c *gin.Context) {
	resp, err := h.svc.GetBalance(c.Request.Context(), CurrentUser(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Error helpers
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "BAD_REQUEST",
		Message: message,
	})
}

// respondError maps business errors to HTTP status codes. Anything
// unrecognized is a server-side failure.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INSUFFICIENT_BALANCE",
			Message: "Insufficient balance",
		})
	case errors.Is(err, ledger.ErrNonPositiveAmount):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_AMOUNT",
			Message: "Amount must be a positive integer",
		})
	case errors.Is(err, service.ErrNoData):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "BAD_REQUEST",
			Message: "Bad request, no data informed",
		})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "NOT_FOUND",
			Message: "User not found",
		})
	case errors.Is(err, ledger.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Status:  "error",
			Code:    "FORBIDDEN",
			Message: "Operation not allowed",
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status:  "error",
			Code:    "UNAUTHORIZED",
			Message: "Incorrect username or password",
		})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "CONFLICT",
			Message: "User with this username or email already exists",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		})
	}
}
