package handler

import (
	"errors"
	"log"
	"net/http"

	"comparte/internal/domain"
	"comparte/internal/middleware"
	"comparte/internal/service"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

type ContactRequest struct {
	DonorID    uint   `json:"donor_id" binding:"required"`
	DonationID uint   `json:"donation_id" binding:"required"`
	Message    string `json:"message" binding:"required,max=1000"`
}

// Submit creates a contact request: one notification in the donor's feed.
// The requester identity comes from the token, never the body.
func (h *RequestHandler) Submit(c *gin.Context) {
	requesterID := middleware.GetUserID(c)
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Submit(requesterID, req.DonorID, req.DonationID, req.Message); err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			log.Printf("[request] submit failed: requester=%d donation=%d err=%v", requesterID, req.DonationID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit request"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}
