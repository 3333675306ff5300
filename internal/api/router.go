// Package api wires the HTTP handlers into a gin router.
package api

import (
	"net/http"

	"eemeter/internal/api/handlers"
	"eemeter/internal/api/middleware"
	"eemeter/internal/store"
	"eemeter/internal/weather"

	"github.com/gin-gonic/gin"
)

// Deps are the services the handlers use. Both may be nil.
type Deps struct {
	Store   store.Store
	Weather *weather.OpenMeteo
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	evaluateHandler := handlers.NewEvaluateHandler(deps.Store, deps.Weather)
	runHandler := handlers.NewRunHandler(deps.Store)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": deps.Store != nil, "openmeteo": deps.Weather != nil})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/evaluate", evaluateHandler.Evaluate)

		api.GET("/runs", runHandler.ListRuns)
		api.GET("/runs/:id", runHandler.GetRun)
		api.DELETE("/runs/:id", runHandler.DeleteRun)

		api.GET("/meters", handlers.ListMeters)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
