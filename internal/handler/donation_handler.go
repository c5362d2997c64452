package handler

import (
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"comparte/config"
	"comparte/internal/domain"
	"comparte/internal/middleware"
	"comparte/internal/models"
	"comparte/internal/repository"
	"comparte/pkg/location"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DonationHandler struct {
	cfg  *config.Config
	repo *repository.DonationRepository
}

func NewDonationHandler(cfg *config.Config, repo *repository.DonationRepository) *DonationHandler {
	return &DonationHandler{cfg: cfg, repo: repo}
}

type DonationRequest struct {
	Type           string   `json:"type" binding:"required,max=64"`
	Description    string   `json:"description" binding:"required,max=512"`
	Quantity       float64  `json:"quantity" binding:"required,gt=0"`
	Unit           string   `json:"unit" binding:"required,max=16"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	ExpirationDate string   `json:"expirationDate"` // ISO date, optional
	Images         []string `json:"images"`
}

func (r *DonationRequest) expiration() (*time.Time, bool) {
	if r.ExpirationDate == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", r.ExpirationDate)
	if err != nil {
		t, err = time.Parse(time.RFC3339, r.ExpirationDate)
		if err != nil {
			return nil, false
		}
	}
	return &t, true
}

func (h *DonationHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	exp, ok := req.expiration()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expirationDate format (use YYYY-MM-DD)"})
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude must be provided together"})
		return
	}
	d := &models.Donation{
		OwnerID:        userID,
		Type:           req.Type,
		Description:    req.Description,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		ExpirationDate: exp,
		Status:         domain.DonationStatusAvailable,
	}
	for _, url := range req.Images {
		d.Images = append(d.Images, models.DonationImage{URL: url})
	}
	if err := h.repo.Create(d); err != nil {
		log.Printf("[donation] create failed: owner=%d err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create donation"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"donation": d})
}

func (h *DonationHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donation id"})
		return
	}
	d, err := h.repo.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"donation": d})
}

func (h *DonationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := h.repo.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list donations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": list})
}

func (h *DonationHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	list, err := h.repo.ListByOwnerID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list donations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": list})
}

// Nearby returns available donations within radius_km of lat/lng, closest first.
func (h *DonationHandler) Nearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}
	radius := h.cfg.Donations.DefaultRadiusKm
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius_km"})
			return
		}
		radius = r
	}
	if radius > h.cfg.Donations.MaxRadiusKm {
		radius = h.cfg.Donations.MaxRadiusKm
	}
	list, err := h.repo.ListWithLocation(domain.DonationStatusAvailable)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list donations"})
		return
	}
	type nearbyDonation struct {
		models.Donation
		DistanceKm float64 `json:"distance_km"`
	}
	now := time.Now()
	var out []nearbyDonation
	for i := range list {
		d := list[i]
		if d.Expired(now) {
			continue
		}
		dist := location.HaversineKm(lat, lng, *d.Latitude, *d.Longitude)
		if dist <= radius {
			out = append(out, nearbyDonation{Donation: d, DistanceKm: dist})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	c.JSON(http.StatusOK, gin.H{"donations": out, "radius_km": radius})
}

func (h *DonationHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donation id"})
		return
	}
	d, err := h.repo.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
		return
	}
	if d.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your donation"})
		return
	}
	var req struct {
		DonationRequest
		Status *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	exp, ok := req.expiration()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expirationDate format (use YYYY-MM-DD)"})
		return
	}
	d.Type = req.Type
	d.Description = req.Description
	d.Quantity = req.Quantity
	d.Unit = req.Unit
	d.Latitude = req.Latitude
	d.Longitude = req.Longitude
	d.ExpirationDate = exp
	if req.Status != nil {
		switch *req.Status {
		case domain.DonationStatusAvailable, domain.DonationStatusReserved, domain.DonationStatusDelivered:
			d.Status = *req.Status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}
	replaceImages := req.Images != nil
	if replaceImages {
		d.Images = nil
		for _, url := range req.Images {
			d.Images = append(d.Images, models.DonationImage{URL: url})
		}
	}
	if err := h.repo.Update(d, replaceImages); err != nil {
		log.Printf("[donation] update failed: id=%d err=%v", d.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update donation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"donation": d})
}

func (h *DonationHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donation id"})
		return
	}
	d, err := h.repo.GetByID(uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load donation"})
		return
	}
	if d.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your donation"})
		return
	}
	if err := h.repo.Delete(d.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete donation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
