package review

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the review endpoints on the router.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/runs", api.TriggerRunHandler)

		updates := v1.Group("/updates")
		{
			updates.GET("", api.ListUpdatesHandler)
			updates.GET("/:id", api.GetUpdateHandler)
			updates.POST("/:id/approve", api.ApproveHandler)
			updates.POST("/:id/reject", api.RejectHandler)
		}
	}
}
