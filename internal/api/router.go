// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/config"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/di"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/services"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
)

// SetupRouter wires the HTTP surface from the already-initialized service
// container.
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	store, ok := container.Get("store").(*storage.CorpusStore)
	if !ok {
		return nil, fmt.Errorf("corpus store is not initialized")
	}
	memory, ok := container.Get("memory").(*services.MemoryService)
	if !ok {
		return nil, fmt.Errorf("memory service is not initialized")
	}
	consistency, ok := container.Get("consistency").(*services.ConsistencyService)
	if !ok {
		return nil, fmt.Errorf("consistency service is not initialized")
	}
	evolution, ok := container.Get("evolution").(*services.EvolutionService)
	if !ok {
		return nil, fmt.Errorf("evolution service is not initialized")
	}
	plotlines, ok := container.Get("plotlines").(*services.PlotlineService)
	if !ok {
		return nil, fmt.Errorf("plotline service is not initialized")
	}
	qualitative, ok := container.Get("qualitative").(*services.QualitativeService)
	if !ok {
		return nil, fmt.Errorf("qualitative service is not initialized")
	}
	usage, ok := container.Get("usage").(*services.UsageService)
	if !ok {
		return nil, fmt.Errorf("usage service is not initialized")
	}

	handler := NewHandler(store, memory, consistency, evolution, plotlines, qualitative, usage)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", handler.HealthCheck)

	api := r.Group("/api")
	{
		api.POST("/novels", handler.CreateNovel)
		api.GET("/novels", handler.ListNovels)
		api.GET("/novels/:id", handler.GetNovel)

		api.POST("/novels/:id/chapters", handler.AppendChapter)
		api.GET("/novels/:id/chapters", handler.GetChapters)

		api.POST("/novels/:id/characters", handler.CreateCharacter)
		api.GET("/novels/:id/characters", handler.GetCharacters)
		api.POST("/novels/:id/characters/:character_id/evolve", handler.EvolveCharacter)

		api.POST("/novels/:id/plotlines", handler.CreatePlotline)
		api.GET("/novels/:id/plotlines", handler.GetPlotlines)
		api.POST("/novels/:id/plotlines/:plotline_id/developments", handler.AppendDevelopment)
		api.PUT("/novels/:id/plotlines/:plotline_id/status", handler.ForcePlotlineStatus)
		api.POST("/novels/:id/plotlines/:plotline_id/evolve", handler.EvolvePlotline)

		api.GET("/novels/:id/memory", handler.GetStoryMemory)
		api.POST("/novels/:id/check", handler.CheckChapter)
		api.GET("/novels/:id/report", handler.GetConsistencyReport)

		api.GET("/novels/:id/world", handler.GetWorld)
		api.POST("/novels/:id/world/merge", handler.MergeWorld)

		api.GET("/novels/:id/evolution", handler.GetEvolutionLog)

		api.GET("/usage", handler.GetUsage)
		api.PUT("/settings/llm", handler.UpdateLLMSettings)
	}

	r.GET("/ws/consistency/:id", handler.CheckChapterWS)

	return r, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
