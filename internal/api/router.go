package api

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/ptouch/internal/api/handlers"
	"github.com/orrn/ptouch/internal/api/middleware"
	"github.com/orrn/ptouch/internal/core"
)

// NewRouter builds the HTTP API. All routes except auth and health
// require a valid session.
func NewRouter(database *sql.DB, manager *core.PrinterManager, queue *core.Queue) (*gin.Engine, error) {
	auth, err := middleware.NewAuthMiddleware(database)
	if err != nil {
		return nil, err
	}

	jobHandler := handlers.NewJobHandler(queue)
	printerHandler := handlers.NewPrinterHandler(manager, queue)
	webhookHandler := handlers.NewWebhookHandler()

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/setup", auth.SetupHandler)
		authGroup.POST("/login", auth.LoginHandler)
		authGroup.POST("/logout", auth.LogoutHandler)
		authGroup.GET("/status", auth.StatusHandler)
	}

	apiGroup := r.Group("/api")
	apiGroup.Use(auth.RequireAuth())
	{
		apiGroup.POST("/jobs", jobHandler.CreateJob)
		apiGroup.GET("/jobs", jobHandler.ListJobs)
		apiGroup.GET("/jobs/:id", jobHandler.GetJob)
		apiGroup.GET("/jobs/:id/payload", jobHandler.GetJobPayload)
		apiGroup.POST("/jobs/:id/cancel", jobHandler.CancelJob)
		apiGroup.POST("/jobs/:id/reprint", jobHandler.ReprintJob)
		apiGroup.DELETE("/jobs/:id", jobHandler.DeleteJob)
		apiGroup.GET("/refs/:ref", jobHandler.GetJobByRef)
		apiGroup.GET("/queue/stats", jobHandler.GetQueueStats)

		apiGroup.POST("/print", jobHandler.DirectPrint)

		apiGroup.POST("/printers", printerHandler.CreatePrinter)
		apiGroup.GET("/printers", printerHandler.ListPrinters)
		apiGroup.GET("/printers/:id", printerHandler.GetPrinter)
		apiGroup.PUT("/printers/:id", printerHandler.UpdatePrinter)
		apiGroup.DELETE("/printers/:id", printerHandler.DeletePrinter)
		apiGroup.GET("/printers/:id/status", printerHandler.GetPrinterStatus)
		apiGroup.POST("/printers/:id/pause", printerHandler.PausePrinter)
		apiGroup.POST("/printers/:id/resume", printerHandler.ResumePrinter)

		apiGroup.POST("/webhooks", webhookHandler.CreateWebhook)
		apiGroup.GET("/webhooks", webhookHandler.ListWebhooks)
		apiGroup.GET("/webhooks/:id", webhookHandler.GetWebhook)
		apiGroup.PUT("/webhooks/:id", webhookHandler.UpdateWebhook)
		apiGroup.DELETE("/webhooks/:id", webhookHandler.DeleteWebhook)
	}

	return r, nil
}
