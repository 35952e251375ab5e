// internal/services/usage_service.go
package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AnalyzerUsage tracks qualitative analyzer consumption.
type AnalyzerUsage struct {
	TodayRequests int            `json:"today_requests"`
	MonthlyTokens int            `json:"monthly_tokens"`
	DailyStats    map[string]int `json:"daily_stats"`
	MonthlyStats  map[string]int `json:"monthly_stats"`
	LastUpdated   time.Time      `json:"last_updated"`
}

// UsageService records analyzer requests and token spend, persisting the
// counters with a debounce so hot paths never block on disk.
type UsageService struct {
	statsFile    string
	mutex        sync.Mutex
	cachedStats  *AnalyzerUsage
	isDirty      bool
	lastSaveTime time.Time
	saveInterval time.Duration
}

// NewUsageService creates the service rooted under dataDir.
func NewUsageService(dataDir string) *UsageService {
	basePath := filepath.Join(dataDir, "stats")
	if err := os.MkdirAll(basePath, 0755); err != nil {
		fmt.Printf("warning: failed to create stats directory: %v\n", err)
	}

	service := &UsageService{
		statsFile:    filepath.Join(basePath, "analyzer_usage.json"),
		saveInterval: 30 * time.Second,
	}
	service.startPeriodicSave()

	return service
}

func (s *UsageService) initStatsUnlocked() {
	if stats, err := s.loadStats(); err == nil {
		s.rolloverPeriods(stats)
		s.cachedStats = stats
		return
	}

	s.cachedStats = &AnalyzerUsage{
		DailyStats:   make(map[string]int),
		MonthlyStats: make(map[string]int),
		LastUpdated:  time.Now(),
	}
}

func (s *UsageService) loadStats() (*AnalyzerUsage, error) {
	data, err := os.ReadFile(s.statsFile)
	if err != nil {
		return nil, err
	}

	var stats AnalyzerUsage
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse usage stats: %w", err)
	}

	if stats.DailyStats == nil {
		stats.DailyStats = make(map[string]int)
	}
	if stats.MonthlyStats == nil {
		stats.MonthlyStats = make(map[string]int)
	}

	return &stats, nil
}

// rolloverPeriods resets per-day and per-month counters when the period
// has changed since the last update.
func (s *UsageService) rolloverPeriods(stats *AnalyzerUsage) {
	now := time.Now()
	if now.Format("2006-01-02") != stats.LastUpdated.Format("2006-01-02") {
		stats.TodayRequests = 0
	}
	if now.Format("2006-01") != stats.LastUpdated.Format("2006-01") {
		stats.MonthlyTokens = 0
	}
}

func (s *UsageService) saveStats(stats *AnalyzerUsage) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize usage stats: %w", err)
	}

	tempFile := s.statsFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp stats file: %w", err)
	}
	if err := os.Rename(tempFile, s.statsFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace stats file: %w", err)
	}

	return nil
}

// RecordAnalyzerCall records one qualitative analyzer invocation.
func (s *UsageService) RecordAnalyzerCall(tokens int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cachedStats == nil {
		s.initStatsUnlocked()
	}

	now := time.Now()
	s.rolloverPeriods(s.cachedStats)
	s.cachedStats.TodayRequests++
	s.cachedStats.MonthlyTokens += tokens
	s.cachedStats.DailyStats[now.Format("2006-01-02")]++
	s.cachedStats.MonthlyStats[now.Format("2006-01")] += tokens
	s.cachedStats.LastUpdated = now

	s.isDirty = true
	if now.Sub(s.lastSaveTime) > s.saveInterval {
		s.saveDirtyUnlocked()
	}
}

// GetUsage returns a copy of the current counters.
func (s *UsageService) GetUsage() *AnalyzerUsage {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cachedStats == nil {
		s.initStatsUnlocked()
	}
	s.rolloverPeriods(s.cachedStats)

	stats := &AnalyzerUsage{
		TodayRequests: s.cachedStats.TodayRequests,
		MonthlyTokens: s.cachedStats.MonthlyTokens,
		DailyStats:    make(map[string]int, len(s.cachedStats.DailyStats)),
		MonthlyStats:  make(map[string]int, len(s.cachedStats.MonthlyStats)),
		LastUpdated:   s.cachedStats.LastUpdated,
	}
	for k, v := range s.cachedStats.DailyStats {
		stats.DailyStats[k] = v
	}
	for k, v := range s.cachedStats.MonthlyStats {
		stats.MonthlyStats[k] = v
	}
	return stats
}

func (s *UsageService) saveDirtyUnlocked() {
	if !s.isDirty {
		return
	}
	if err := s.saveStats(s.cachedStats); err != nil {
		fmt.Printf("warning: failed to save usage stats: %v\n", err)
		return
	}
	s.isDirty = false
	s.lastSaveTime = time.Now()
}

func (s *UsageService) startPeriodicSave() {
	go func() {
		ticker := time.NewTicker(s.saveInterval)
		defer ticker.Stop()
		for range ticker.C {
			s.mutex.Lock()
			s.saveDirtyUnlocked()
			s.mutex.Unlock()
		}
	}()
}

// Close flushes any unsaved counters.
func (s *UsageService) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isDirty {
		return s.saveStats(s.cachedStats)
	}
	return nil
}
