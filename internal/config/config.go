// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig holds every runtime setting of the engine.
type AppConfig struct {
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// Embedding vocabulary override; built-in vocabulary is used when empty.
	VocabularyFile string `json:"vocabulary_file,omitempty"`

	// Qualitative analyzer settings.
	LLMProvider            string            `json:"llm_provider"`
	LLMConfig              map[string]string `json:"llm_config"`
	AnalyzerTimeoutSeconds int               `json:"analyzer_timeout_seconds"`
}

// Config stores the base environment-driven settings.
type Config struct {
	Port                   string
	OpenAIAPIKey           string
	DataDir                string
	LogDir                 string
	DebugMode              bool
	VocabularyFile         string
	AnalyzerTimeoutSeconds int
}

// Load reads configuration from the environment (plus an optional .env).
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:                   getEnv("PORT", "8080"),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		DataDir:                getEnvPath("DATA_DIR", "data"),
		LogDir:                 getEnvPath("LOG_DIR", "logs"),
		DebugMode:              getEnvBool("DEBUG_MODE", true),
		VocabularyFile:         getEnv("VOCABULARY_FILE", ""),
		AnalyzerTimeoutSeconds: getEnvInt("ANALYZER_TIMEOUT_SECONDS", 90),
	}

	if config.OpenAIAPIKey == "" {
		log.Println("warning: OPENAI_API_KEY is not set; qualitative analysis will degrade to rule-based checks")
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// InitConfig initializes the config manager, merging any persisted
// config.json under the data dir with the environment-driven base config.
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:                   baseConfig.Port,
		DataDir:                baseConfig.DataDir,
		LogDir:                 baseConfig.LogDir,
		DebugMode:              baseConfig.DebugMode,
		VocabularyFile:         baseConfig.VocabularyFile,
		LLMProvider:            "openai",
		AnalyzerTimeoutSeconds: baseConfig.AnalyzerTimeoutSeconds,
		LLMConfig: map[string]string{
			"api_key":       baseConfig.OpenAIAPIKey,
			"default_model": "gpt-4o",
		},
	}

	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// Keep the saved LLM settings but always use the fresh
				// environment-driven base settings.
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode
				if savedConfig.VocabularyFile == "" {
					savedConfig.VocabularyFile = baseConfig.VocabularyFile
				}
				if savedConfig.AnalyzerTimeoutSeconds <= 0 {
					savedConfig.AnalyzerTimeoutSeconds = baseConfig.AnalyzerTimeoutSeconds
				}
				if savedConfig.LLMConfig != nil && savedConfig.LLMConfig["api_key"] == "" {
					savedConfig.LLMConfig["api_key"] = baseConfig.OpenAIAPIKey
				}

				currentConfig = &savedConfig
			}
		}
	}

	return SaveConfig()
}

// GetCurrentConfig returns a copy of the current configuration.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, _ := Load()
		return &AppConfig{
			Port:                   baseConfig.Port,
			DataDir:                baseConfig.DataDir,
			LogDir:                 baseConfig.LogDir,
			DebugMode:              baseConfig.DebugMode,
			VocabularyFile:         baseConfig.VocabularyFile,
			LLMProvider:            "openai",
			AnalyzerTimeoutSeconds: baseConfig.AnalyzerTimeoutSeconds,
			LLMConfig: map[string]string{
				"api_key": baseConfig.OpenAIAPIKey,
			},
		}
	}

	configCopy := *currentConfig
	return &configCopy
}

// UpdateLLMConfig switches the analyzer provider settings.
func UpdateLLMConfig(provider string, config map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("config system is not initialized")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = config

	return SaveConfig()
}

// SaveConfig persists the current configuration to disk.
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("no configuration to save")
	}

	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
