package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router returns a gin engine serving the same routes as Handle, for running
// the service as a plain HTTP server.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = append(config.AllowHeaders, correlationHeader)
	config.ExposeHeaders = append(config.ExposeHeaders, correlationHeader)
	router.Use(cors.New(config))

	for _, prefix := range []string{"", "/api"} {
		router.GET(prefix+"/health", h.ginHealth)
		router.POST(prefix+"/recommendations", h.ginRecommendations)
		router.POST(prefix+"/chat", h.ginChat)
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: msgNotFound})
	})
	return router
}

func (h *Handler) ginRecommendations(c *gin.Context) {
	corrID := h.ginCorrelationID(c)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgMalformedBody})
		return
	}
	writeGin(c, h.recommendations(c.Request.Context(), h.logger.With("correlationId", corrID), body))
}

func (h *Handler) ginChat(c *gin.Context) {
	corrID := h.ginCorrelationID(c)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgMalformedBody})
		return
	}
	writeGin(c, h.chat(c.Request.Context(), h.logger.With("correlationId", corrID), body))
}

func (h *Handler) ginHealth(c *gin.Context) {
	h.ginCorrelationID(c)
	writeGin(c, health())
}

func (h *Handler) ginCorrelationID(c *gin.Context) string {
	corrID := correlationID(c.GetHeader)
	c.Header(correlationHeader, corrID)
	return corrID
}

func writeGin(c *gin.Context, res result) {
	c.JSON(res.status, res.body)
}
