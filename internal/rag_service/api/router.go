package api

import "github.com/gin-gonic/gin"

// SetupRouter wires the HTTP routes to the handler set.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", h.Health)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/chat", h.Chat)
		apiV1.GET("/usage", h.Usage)

		index := apiV1.Group("/index")
		{
			index.POST("/rebuild", h.RebuildIndex)
			index.POST("/documents/:id", h.ReindexDocument)
			index.DELETE("/documents/:id", h.DeleteDocumentIndex)
			index.DELETE("", h.ClearIndex)
		}
	}

	return r
}
