package handlers

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orrn/ptouch/internal/db"
	"github.com/orrn/ptouch/internal/utils"
)

type CreateWebhookRequest struct {
	Name    string   `json:"name" binding:"required"`
	URL     string   `json:"url" binding:"required,url"`
	Events  []string `json:"events" binding:"required,min=1"`
	Enabled *bool    `json:"enabled"`
}

type UpdateWebhookRequest struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
	Enabled *bool    `json:"enabled"`
}

type WebhookResponse struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
	Enabled bool     `json:"enabled"`
}

type WebhookHandler struct{}

func NewWebhookHandler() *WebhookHandler {
	return &WebhookHandler{}
}

func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventsJSON, err := json.Marshal(req.Events)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid events"})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	webhook := &db.Webhook{
		Name:       req.Name,
		URL:        req.URL,
		Secret:     hex.EncodeToString(utils.GenerateRandomKey()),
		EventsJSON: string(eventsJSON),
		Enabled:    enabled,
	}

	if err := db.Webhooks.CreateWebhook(c.Request.Context(), webhook); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create webhook"})
		return
	}
	audit(c, "webhook.create", "webhook", webhook.ID)

	// The signing secret is shown once, on creation.
	c.JSON(http.StatusCreated, gin.H{
		"id":      webhook.ID,
		"name":    webhook.Name,
		"url":     webhook.URL,
		"events":  req.Events,
		"enabled": webhook.Enabled,
		"secret":  webhook.Secret,
	})
}

func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	webhooks, err := db.Webhooks.ListWebhooks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list webhooks"})
		return
	}

	resp := make([]WebhookResponse, 0, len(webhooks))
	for _, w := range webhooks {
		resp = append(resp, toWebhookResponse(w))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WebhookHandler) GetWebhook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	webhook, err := db.Webhooks.GetWebhookByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
		return
	}

	c.JSON(http.StatusOK, toWebhookResponse(webhook))
}

func (h *WebhookHandler) UpdateWebhook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	webhook, err := db.Webhooks.GetWebhookByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
		return
	}

	var req UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		webhook.Name = req.Name
	}
	if req.URL != "" {
		webhook.URL = req.URL
	}
	if len(req.Events) > 0 {
		eventsJSON, err := json.Marshal(req.Events)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid events"})
			return
		}
		webhook.EventsJSON = string(eventsJSON)
	}
	if req.Enabled != nil {
		webhook.Enabled = *req.Enabled
	}

	if err := db.Webhooks.UpdateWebhook(c.Request.Context(), webhook); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update webhook"})
		return
	}

	c.JSON(http.StatusOK, toWebhookResponse(webhook))
}

func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	if err := db.Webhooks.DeleteWebhook(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete webhook"})
		return
	}

	audit(c, "webhook.delete", "webhook", id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func toWebhookResponse(w *db.Webhook) WebhookResponse {
	var events []string
	if err := json.Unmarshal([]byte(w.EventsJSON), &events); err != nil {
		events = nil
	}
	return WebhookResponse{
		ID:      w.ID,
		Name:    w.Name,
		URL:     w.URL,
		Events:  events,
		Enabled: w.Enabled,
	}
}
