package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"comparte/internal/middleware"
	"comparte/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	cloud cloudinary.Client
}

func NewUploadHandler(cloud cloudinary.Client) *UploadHandler {
	return &UploadHandler{cloud: cloud}
}

// UploadDonationImage uploads a donation photo. Returns URL and thumbnail.
func (h *UploadHandler) UploadDonationImage(c *gin.Context) {
	h.upload(c, "Comparte/donations/")
}

// UploadProfilePhoto uploads a profile picture. Returns URL and thumbnail.
func (h *UploadHandler) UploadProfilePhoto(c *gin.Context) {
	h.upload(c, "Comparte/profiles/")
}

func (h *UploadHandler) upload(c *gin.Context, folderPrefix string) {
	userID := middleware.GetUserID(c)
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	folder := folderPrefix + strconv.FormatUint(uint64(userID), 10)
	publicID := "img_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	url, thumb, err := h.cloud.UploadImage(c.Request.Context(), f, folder, publicID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "thumbnail_url": thumb})
}
