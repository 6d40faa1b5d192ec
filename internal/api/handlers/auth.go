package handlers

import (
	"context"
	"net/http"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/identity"
	"github.com/Conceptual-Machines/midigen-api/internal/logger"
	"github.com/Conceptual-Machines/midigen-api/internal/middleware"
	"github.com/Conceptual-Machines/midigen-api/internal/models"
	"github.com/Conceptual-Machines/midigen-api/internal/services"
	"github.com/gin-gonic/gin"
)

// GenerationCleaner removes a user's generations before the account goes
type GenerationCleaner interface {
	ListByUser(ctx context.Context, userID string) ([]models.Generation, error)
	BatchDelete(ctx context.Context, ids []string, userID string) services.BatchDeleteResult
}

type AuthHandler struct {
	identity    *identity.Provider
	generations GenerationCleaner
}

func NewAuthHandler(provider *identity.Provider, generations GenerationCleaner) *AuthHandler {
	return &AuthHandler{identity: provider, generations: generations}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.identity.CreateUser(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("User created", logger.WithContext(c).With(logger.Fields{"new_user_id": user.ID}))
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.identity.VerifyCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthorized, "authentication required"))
		return
	}
	user, err := h.identity.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteMe deletes the caller's generations, then the account. The account
// is kept when any generation could not be removed.
func (h *AuthHandler) DeleteMe(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthorized, "authentication required"))
		return
	}
	ctx := c.Request.Context()

	if h.generations != nil {
		records, err := h.generations.ListByUser(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		if result := h.generations.BatchDelete(ctx, ids, userID); len(result.Failed) > 0 {
			respondError(c, apperr.Newf(apperr.StorageWriteFailure, "%d generations could not be deleted", len(result.Failed)))
			return
		}
	}

	if err := h.identity.DeleteUser(ctx, userID); err != nil {
		respondError(c, err)
		return
	}
	logger.Info("User deleted", logger.WithContext(c))
	c.Status(http.StatusNoContent)
}
