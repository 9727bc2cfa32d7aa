package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/backoffice/domain"
)

// Mutation is the OTP-guarded change flow for one feature.
type Mutation[P any, R any] interface {
	Feature() string
	Initiate(ctx context.Context, userID uint, identifier string, payload P) (*domain.InitiateResult, error)
	Resend(ctx context.Context, sessionID string, userID uint) error
	Commit(ctx context.Context, sessionID string, userID uint, code string) (R, error)
}

// ResendRequest names the challenge whose code should be sent again.
type ResendRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// CommitRequest carries the code the user received.
type CommitRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	OTP       string `json:"otp" binding:"required"`
}

// MutationHandlers exposes one feature's initiate, resend and commit.
type MutationHandlers[P any, R any] struct {
	mutation Mutation[P, R]
	users    domain.UserRepository
}

// NewMutationHandlers creates handlers for mutation. Codes go to the email
// address on file for the authenticated user.
func NewMutationHandlers[P any, R any](mutation Mutation[P, R], users domain.UserRepository) *MutationHandlers[P, R] {
	return &MutationHandlers[P, R]{mutation: mutation, users: users}
}

// Register mounts the handlers under /{feature}.
func (h *MutationHandlers[P, R]) Register(rg gin.IRoutes) {
	base := "/" + h.mutation.Feature()
	rg.POST(base+"/initiate", h.Initiate)
	rg.POST(base+"/resend", h.Resend)
	rg.POST(base+"/commit", h.Commit)
}

// Initiate validates the payload and sends a code unless nothing would change.
func (h *MutationHandlers[P, R]) Initiate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var payload P
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidPayload.Message()})
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.mutation.Initiate(c.Request.Context(), userID, user.Email, payload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// Resend re-delivers the current code of a challenge.
func (h *MutationHandlers[P, R]) Resend(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.mutation.Resend(c.Request.Context(), req.SessionID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Verification code sent"}})
}

// Commit verifies the code and applies the change.
func (h *MutationHandlers[P, R]) Commit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.mutation.Commit(c.Request.Context(), req.SessionID, userID, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
