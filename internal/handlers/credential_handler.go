package handlers

import (
	"net/http"

	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CredentialHandler handles channel credential registration. Secrets are
// write-only: they are encrypted at rest and never serialized back out.
type CredentialHandler struct {
	credentials *repository.CredentialRepository
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(credentials *repository.CredentialRepository) *CredentialHandler {
	return &CredentialHandler{credentials: credentials}
}

type createCredentialRequest struct {
	Channel      string `json:"channel" binding:"required"`
	VendorID     string `json:"vendorId" binding:"required"`
	AccessKey    string `json:"accessKey"`
	SecretKey    string `json:"secretKey"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// Create registers credentials for one (channel, vendor) pair
func (h *CredentialHandler) Create(c *gin.Context) {
	var req createCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := models.ParseChannel(req.Channel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch channel {
	case models.ChannelCoupang:
		if req.AccessKey == "" || req.SecretKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "COUPANG requires accessKey and secretKey"})
			return
		}
	case models.ChannelNaver:
		if req.ClientID == "" || req.ClientSecret == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "NAVER requires clientId and clientSecret"})
			return
		}
	}

	credential := &models.ChannelCredential{
		Channel:      channel,
		VendorID:     req.VendorID,
		AccessKey:    req.AccessKey,
		SecretKey:    req.SecretKey,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		IsActive:     true,
	}
	if err := h.credentials.Create(c.Request.Context(), credential); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": credential})
}

// List returns registered credentials with secrets redacted
func (h *CredentialHandler) List(c *gin.Context) {
	credentials, err := h.credentials.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  credentials,
		"total": len(credentials),
	})
}

type setCredentialActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetActive enables or disables a credential
func (h *CredentialHandler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req setCredentialActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.credentials.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "credential not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
