package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/services"
)

// Scheduler is the funds and settlement scheduling surface used over HTTP.
type Scheduler interface {
	Windows() services.WindowStatus
	RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal) (*domain.ScheduledTransaction, error)
	QueueDeposit(ctx context.Context, userID uint, amount decimal.Decimal, remarks string) (*domain.ScheduledTransaction, error)
	QueueSettlement(ctx context.Context, order domain.Order) (*domain.ScheduledSettlement, error)
	SweepWithdrawals(ctx context.Context) ([]domain.ScheduledTransaction, error)
	SweepDeposits(ctx context.Context) ([]domain.ScheduledTransaction, error)
	SweepSettlements(ctx context.Context) ([]domain.ScheduledSettlement, error)
	CompleteWithdrawal(ctx context.Context, txnID string, succeeded bool) (*domain.ScheduledTransaction, error)
	CompleteDeposit(ctx context.Context, txnID string, succeeded bool) (*domain.ScheduledTransaction, error)
	CompleteSettlement(ctx context.Context, settlementID string, succeeded bool) (*domain.ScheduledSettlement, error)
}

// FundsHandlers handles withdrawal, deposit and settlement scheduling requests
type FundsHandlers struct {
	scheduler Scheduler
}

func NewFundsHandlers(scheduler Scheduler) *FundsHandlers {
	return &FundsHandlers{scheduler: scheduler}
}

// AmountRequest carries a money amount as a decimal string.
type AmountRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Remarks string          `json:"remarks,omitempty"`
}

// SettlementRequest is an executed order to settle.
type SettlementRequest struct {
	OrderID string          `json:"order_id" binding:"required"`
	UserID  uint            `json:"user_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

// CompleteRequest finishes a processing row.
type CompleteRequest struct {
	Succeeded *bool `json:"succeeded" binding:"required"`
}

// Windows reports the current windows and the next scheduled times.
func (h *FundsHandlers) Windows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.scheduler.Windows()})
}

// RequestWithdrawal queues a withdrawal for the next processing window.
func (h *FundsHandlers) RequestWithdrawal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.scheduler.RequestWithdrawal(c.Request.Context(), userID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": txn})
}

// QueueDeposit records a deposit that is due immediately.
func (h *FundsHandlers) QueueDeposit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.scheduler.QueueDeposit(c.Request.Context(), userID, req.Amount, req.Remarks)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": txn})
}

// QueueSettlement schedules an executed order for the next settlement cycle.
func (h *FundsHandlers) QueueSettlement(c *gin.Context) {
	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.scheduler.QueueSettlement(c.Request.Context(), domain.Order{
		ID:     req.OrderID,
		UserID: req.UserID,
		Amount: req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": st})
}

// SweepWithdrawals runs the withdrawal sweep now.
func (h *FundsHandlers) SweepWithdrawals(c *gin.Context) {
	moved, err := h.scheduler.SweepWithdrawals(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": moved})
}

// SweepDeposits runs the deposit sweep now.
func (h *FundsHandlers) SweepDeposits(c *gin.Context) {
	moved, err := h.scheduler.SweepDeposits(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": moved})
}

// SweepSettlements runs the settlement sweep now.
func (h *FundsHandlers) SweepSettlements(c *gin.Context) {
	moved, err := h.scheduler.SweepSettlements(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": moved})
}

// CompleteWithdrawal marks a processing withdrawal completed or failed.
func (h *FundsHandlers) CompleteWithdrawal(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.scheduler.CompleteWithdrawal(c.Request.Context(), c.Param("id"), *req.Succeeded)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txn})
}

// CompleteDeposit marks a processing deposit completed or failed.
func (h *FundsHandlers) CompleteDeposit(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.scheduler.CompleteDeposit(c.Request.Context(), c.Param("id"), *req.Succeeded)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txn})
}

// CompleteSettlement marks a processing settlement completed or failed.
func (h *FundsHandlers) CompleteSettlement(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.scheduler.CompleteSettlement(c.Request.Context(), c.Param("id"), *req.Succeeded)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}
