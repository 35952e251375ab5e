// internal/api/handlers.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/config"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/models"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/services"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
)

// Handler carries the services the HTTP surface needs.
type Handler struct {
	Store       *storage.CorpusStore
	Memory      *services.MemoryService
	Consistency *services.ConsistencyService
	Evolution   *services.EvolutionService
	Plotlines   *services.PlotlineService
	Qualitative *services.QualitativeService
	Usage       *services.UsageService

	resp *ResponseHelper
}

// NewHandler creates the API handler.
func NewHandler(
	store *storage.CorpusStore,
	memory *services.MemoryService,
	consistency *services.ConsistencyService,
	evolution *services.EvolutionService,
	plotlines *services.PlotlineService,
	qualitative *services.QualitativeService,
	usage *services.UsageService,
) *Handler {
	return &Handler{
		Store:       store,
		Memory:      memory,
		Consistency: consistency,
		Evolution:   evolution,
		Plotlines:   plotlines,
		Qualitative: qualitative,
		Usage:       usage,
		resp:        NewResponseHelper(),
	}
}

// HealthCheck reports service liveness and analyzer readiness.
func (h *Handler) HealthCheck(c *gin.Context) {
	h.resp.Success(c, gin.H{
		"status":         "ok",
		"analyzer_ready": h.Qualitative.IsReady(),
	})
}

type createNovelRequest struct {
	ID          string `json:"id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}

// CreateNovel registers a new novel corpus.
func (h *Handler) CreateNovel(c *gin.Context) {
	var req createNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid novel payload", err.Error())
		return
	}

	novel := &models.Novel{
		ID:          req.ID,
		Title:       req.Title,
		Genre:       req.Genre,
		Description: req.Description,
	}
	if err := h.Store.CreateNovel(novel); err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Created(c, novel)
}

// ListNovels lists stored novel ids.
func (h *Handler) ListNovels(c *gin.Context) {
	ids, err := h.Store.ListNovels()
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"novels": ids})
}

// GetNovel returns one novel record.
func (h *Handler) GetNovel(c *gin.Context) {
	novel, err := h.Store.GetNovel(c.Param("id"))
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, novel)
}

type appendChapterRequest struct {
	Index        int                     `json:"index" binding:"required"`
	Title        string                  `json:"title"`
	Text         string                  `json:"text" binding:"required"`
	Events       []models.StoryEvent     `json:"events"`
	Developments []models.DevelopmentRef `json:"plotline_developments"`
}

// AppendChapter adds one chapter to the corpus.
func (h *Handler) AppendChapter(c *gin.Context) {
	var req appendChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid chapter payload", err.Error())
		return
	}

	chapter := &models.Chapter{
		NovelID:      c.Param("id"),
		Index:        req.Index,
		Title:        req.Title,
		Text:         req.Text,
		Events:       req.Events,
		Developments: req.Developments,
	}
	if err := h.Store.AppendChapter(chapter); err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Created(c, chapter)
}

// GetChapters lists a novel's chapters in order.
func (h *Handler) GetChapters(c *gin.Context) {
	upTo := -1
	if raw := c.Query("up_to"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.resp.BadRequest(c, "up_to must be an integer")
			return
		}
		upTo = n
	}

	chapters, err := h.Store.GetChapters(c.Param("id"), upTo)
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"chapters": chapters})
}

type createCharacterRequest struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Role        string `json:"role"`
	Description string `json:"description"`
	Personality string `json:"personality"`
	Background  string `json:"background"`
	SpeechStyle string `json:"speech_style"`
}

// CreateCharacter registers a character of a novel.
func (h *Handler) CreateCharacter(c *gin.Context) {
	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid character payload", err.Error())
		return
	}

	character := &models.Character{
		ID:          req.ID,
		NovelID:     c.Param("id"),
		Name:        req.Name,
		Role:        req.Role,
		Description: req.Description,
		Personality: req.Personality,
		Background:  req.Background,
		SpeechStyle: req.SpeechStyle,
	}
	if err := h.Store.SaveCharacter(character); err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Created(c, character)
}

// GetCharacters lists a novel's characters.
func (h *Handler) GetCharacters(c *gin.Context) {
	characters, err := h.Store.GetCharacters(c.Param("id"))
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"characters": characters})
}

type createPlotlineRequest struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Importance  int    `json:"importance"`
}

// CreatePlotline registers a plot thread. The category is inferred from the
// name and description when absent; importance defaults to the middle of
// the 1-5 range.
func (h *Handler) CreatePlotline(c *gin.Context) {
	var req createPlotlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid plotline payload", err.Error())
		return
	}

	category := models.PlotlineCategory(req.Category)
	if category == "" {
		category = services.InferCategory(req.Name, req.Description)
	}
	importance := req.Importance
	if importance < 1 || importance > 5 {
		importance = 3
	}

	plotline := &models.Plotline{
		ID:          req.ID,
		NovelID:     c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		Category:    category,
		Importance:  importance,
		Status:      models.PlotlinePlanned,
	}
	if err := h.Store.SavePlotline(plotline); err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Created(c, plotline)
}

// GetPlotlines lists a novel's plot threads.
func (h *Handler) GetPlotlines(c *gin.Context) {
	plotlines, err := h.Store.GetPlotlines(c.Param("id"))
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"plotlines": plotlines})
}

type appendDevelopmentRequest struct {
	ChapterIndex int    `json:"chapter_index" binding:"required"`
	Type         string `json:"type" binding:"required"`
	Description  string `json:"description"`
}

// AppendDevelopment records one development entry on a plot thread and
// immediately re-derives the thread's status.
func (h *Handler) AppendDevelopment(c *gin.Context) {
	var req appendDevelopmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid development payload", err.Error())
		return
	}

	novelID := c.Param("id")
	plotlineID := c.Param("plotline_id")

	dev := models.Development{
		ChapterIndex: req.ChapterIndex,
		Type:         models.DevelopmentType(req.Type),
		Description:  req.Description,
		CreatedAt:    time.Now(),
	}
	switch dev.Type {
	case models.DevelopmentIntroduction, models.DevelopmentAdvancement,
		models.DevelopmentComplication, models.DevelopmentResolution:
	default:
		h.resp.BadRequest(c, fmt.Sprintf("unknown development type: %s", req.Type))
		return
	}

	if err := h.Store.AppendDevelopment(novelID, plotlineID, dev); err != nil {
		h.resp.FromError(c, err)
		return
	}

	record, err := h.Evolution.EvolvePlotline(novelID, plotlineID)
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Created(c, gin.H{"development": dev, "evolution": record})
}

type forceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ForcePlotlineStatus assigns a plot thread status explicitly. This is the
// only way to reach CLIMAXING.
func (h *Handler) ForcePlotlineStatus(c *gin.Context) {
	var req forceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid status payload", err.Error())
		return
	}

	status := models.PlotlineStatus(req.Status)
	if !status.Valid() {
		h.resp.BadRequest(c, fmt.Sprintf("invalid plotline status: %s", req.Status))
		return
	}

	if err := h.Plotlines.ForceStatus(c.Param("id"), c.Param("plotline_id"), status); err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"status": status})
}

// EvolvePlotline recomputes one thread's status from its history.
func (h *Handler) EvolvePlotline(c *gin.Context) {
	record, err := h.Evolution.EvolvePlotline(c.Param("id"), c.Param("plotline_id"))
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"evolution": record})
}

// GetStoryMemory rebuilds and returns the story memory snapshot.
func (h *Handler) GetStoryMemory(c *gin.Context) {
	memory, err := h.Memory.BuildStoryMemory(c.Param("id"))
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, memory)
}

type checkChapterRequest struct {
	ChapterIndex int    `json:"chapter_index" binding:"required"`
	Text         string `json:"text" binding:"required"`
}

// CheckChapter runs the full consistency check of a candidate chapter.
func (h *Handler) CheckChapter(c *gin.Context) {
	var req checkChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid check payload", err.Error())
		return
	}

	report, err := h.Consistency.CheckChapter(c.Request.Context(), c.Param("id"), req.Text, req.ChapterIndex, nil)
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, report)
}

type evolveCharacterRequest struct {
	Notes []string `json:"notes" binding:"required"`
}

// EvolveCharacter applies analyzer-approved field changes to a character.
func (h *Handler) EvolveCharacter(c *gin.Context) {
	var req evolveCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid evolution payload", err.Error())
		return
	}

	record, err := h.Evolution.EvolveCharacter(c.Request.Context(), c.Param("id"), c.Param("character_id"), req.Notes)
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	if record == nil {
		h.resp.Success(c, gin.H{"applied": false}, "analyzer proposed no changes")
		return
	}
	h.resp.Success(c, gin.H{"applied": true, "evolution": record})
}

// GetConsistencyReport audits the whole corpus as it stands and returns
// the aggregated report with lifetime-scaled scores.
func (h *Handler) GetConsistencyReport(c *gin.Context) {
	report, err := h.Consistency.ReportNovel(c.Param("id"))
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, report)
}

// GetWorld returns the novel's worldbuilding state.
func (h *Handler) GetWorld(c *gin.Context) {
	world, err := h.Store.GetWorld(c.Param("id"))
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, world)
}

// MergeWorld folds new world elements into the stored state additively.
func (h *Handler) MergeWorld(c *gin.Context) {
	var elements models.WorldElements
	if err := c.ShouldBindJSON(&elements); err != nil {
		h.resp.BadRequest(c, "invalid world elements payload", err.Error())
		return
	}

	result, err := h.Evolution.MergeWorldBuilding(c.Param("id"), &elements)
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, result)
}

// GetEvolutionLog returns the audit trail of applied mutations.
func (h *Handler) GetEvolutionLog(c *gin.Context) {
	records, err := h.Store.GetEvolutionRecords(c.Param("id"))
	if err != nil {
		h.resp.FromError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"records": records})
}

// GetUsage returns analyzer usage counters.
func (h *Handler) GetUsage(c *gin.Context) {
	h.resp.Success(c, h.Usage.GetUsage())
}

type updateLLMRequest struct {
	Provider string            `json:"provider" binding:"required"`
	Config   map[string]string `json:"config" binding:"required"`
}

// UpdateLLMSettings switches the qualitative analyzer provider settings.
// Takes effect on next restart; the running analyzer keeps its provider.
func (h *Handler) UpdateLLMSettings(c *gin.Context) {
	var req updateLLMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "invalid settings payload", err.Error())
		return
	}

	if err := config.UpdateLLMConfig(req.Provider, req.Config); err != nil {
		h.resp.Error(c, http.StatusInternalServerError, "CONFIG_ERROR", err.Error())
		return
	}
	h.resp.Success(c, gin.H{"provider": req.Provider})
}
