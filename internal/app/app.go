// internal/app/app.go
package app

import (
	"fmt"
	"time"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/config"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/di"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/llm"
	_ "github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/llm/providers/openai"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/services"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/storage"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/utils"
)

// Services bundles every initialized engine service.
type Services struct {
	Store       *storage.CorpusStore
	Vocabulary  *services.Vocabulary
	Embedding   *services.EmbeddingService
	Extractor   *services.ExtractorService
	Profiles    *services.ProfileService
	Memory      *services.MemoryService
	Plotlines   *services.PlotlineService
	Anomalies   *services.AnomalyService
	Qualitative *services.QualitativeService
	Consistency *services.ConsistencyService
	Evolution   *services.EvolutionService
	Usage       *services.UsageService
	Locks       *services.LockManager
}

// InitServices builds the whole service graph in dependency order and
// registers each service in the global container.
func InitServices(cfg *config.AppConfig) (*Services, error) {
	logger := utils.GetLogger()

	store, err := storage.NewCorpusStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize corpus store: %w", err)
	}

	vocab := services.DefaultVocabulary()
	if cfg.VocabularyFile != "" {
		loaded, err := services.LoadVocabularyFile(cfg.VocabularyFile)
		if err != nil {
			logger.Warn("failed to load vocabulary file, falling back to built-in vocabulary", map[string]interface{}{
				"file":  cfg.VocabularyFile,
				"error": err.Error(),
			})
		} else {
			vocab = loaded
		}
	}

	embedding := services.NewEmbeddingService(vocab)
	extractor := services.NewExtractorService()
	profiles := services.NewProfileService(embedding)
	memory := services.NewMemoryService(store, extractor, profiles)
	plotlines := services.NewPlotlineService(store)
	anomalies := services.NewAnomalyService(extractor)
	usage := services.NewUsageService(cfg.DataDir)
	locks := services.NewLockManager()

	var provider llm.Provider
	if cfg.LLMProvider != "" && cfg.LLMConfig["api_key"] != "" {
		provider, err = llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
		if err != nil {
			logger.Warn("qualitative analyzer provider unavailable, running rule-based only", map[string]interface{}{
				"provider": cfg.LLMProvider,
				"error":    err.Error(),
			})
			provider = nil
		}
	} else {
		logger.Info("no qualitative analyzer configured, running rule-based only", nil)
	}

	timeout := time.Duration(cfg.AnalyzerTimeoutSeconds) * time.Second
	qualitative := services.NewQualitativeService(provider, timeout, usage)

	consistency := services.NewConsistencyService(
		store, memory, extractor, embedding, profiles, plotlines, anomalies, qualitative)
	evolution := services.NewEvolutionService(store, plotlines, qualitative, locks)

	svc := &Services{
		Store:       store,
		Vocabulary:  vocab,
		Embedding:   embedding,
		Extractor:   extractor,
		Profiles:    profiles,
		Memory:      memory,
		Plotlines:   plotlines,
		Anomalies:   anomalies,
		Qualitative: qualitative,
		Consistency: consistency,
		Evolution:   evolution,
		Usage:       usage,
		Locks:       locks,
	}

	container := di.GetContainer()
	container.Register("store", store)
	container.Register("embedding", embedding)
	container.Register("extractor", extractor)
	container.Register("profiles", profiles)
	container.Register("memory", memory)
	container.Register("plotlines", plotlines)
	container.Register("anomalies", anomalies)
	container.Register("qualitative", qualitative)
	container.Register("consistency", consistency)
	container.Register("evolution", evolution)
	container.Register("usage", usage)

	logger.Info("services initialized", map[string]interface{}{
		"data_dir":        cfg.DataDir,
		"vocabulary_size": vocab.Size(),
		"analyzer_ready":  qualitative.IsReady(),
	})

	return svc, nil
}

// Close releases service resources.
func (s *Services) Close() error {
	if s.Usage != nil {
		return s.Usage.Close()
	}
	return nil
}
