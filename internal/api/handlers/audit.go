package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orrn/ptouch/internal/db"
	"github.com/orrn/ptouch/internal/logger"
)

// audit records an API action in the audit log. Best effort: a failed
// write is logged, never surfaced to the client.
func audit(c *gin.Context, action, entityType string, entityID int64) {
	entry := &db.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  c.ClientIP(),
	}
	if err := db.Audit.CreateAuditLog(c.Request.Context(), entry); err != nil {
		logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.Error(err))
	}
}
