// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	OutputDir string `json:"output_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// 分析相关配置
	StatsDBPath   string `json:"stats_db_path"`
	TokenizerDict string `json:"tokenizer_dict,omitempty"`
	MaxScenes     int    `json:"max_scenes"`
	MinCharFreq   int    `json:"min_char_freq"`
}

// Config 存储应用配置
type Config struct {
	Port          string
	DataDir       string
	OutputDir     string
	LogDir        string
	DebugMode     bool
	StatsDBPath   string
	TokenizerDict string
	MaxScenes     int
	MinCharFreq   int
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:          getEnv("PORT", "8080"),
		DataDir:       getEnvPath("DATA_DIR", "data"),
		OutputDir:     getEnvPath("OUTPUT_DIR", "output"),
		LogDir:        getEnvPath("LOG_DIR", "logs"),
		DebugMode:     getEnvBool("DEBUG_MODE", true),
		StatsDBPath:   getEnv("STATS_DB_PATH", ""),
		TokenizerDict: getEnv("TOKENIZER_DICT", ""),
		MaxScenes:     getEnvInt("MAX_SCENES", 50),
		MinCharFreq:   getEnvInt("MIN_CHAR_FREQ", 3),
	}

	// 统计库默认落在数据目录下
	if config.StatsDBPath == "" {
		config.StatsDBPath = filepath.Join(config.DataDir, "statistics.db")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量
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

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	// 加载基础配置
	baseConfig, err := Load()
	if err != nil {
		return err
	}

	// 创建初始配置
	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:          baseConfig.Port,
		DataDir:       baseConfig.DataDir,
		OutputDir:     baseConfig.OutputDir,
		LogDir:        baseConfig.LogDir,
		DebugMode:     baseConfig.DebugMode,
		StatsDBPath:   baseConfig.StatsDBPath,
		TokenizerDict: baseConfig.TokenizerDict,
		MaxScenes:     baseConfig.MaxScenes,
		MinCharFreq:   baseConfig.MinCharFreq,
	}

	// 尝试从文件加载已保存的配置
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// 合并配置，保留文件中的分析设置，但使用最新的基础配置
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.OutputDir = baseConfig.OutputDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode
				savedConfig.StatsDBPath = baseConfig.StatsDBPath

				if savedConfig.MaxScenes <= 0 {
					savedConfig.MaxScenes = baseConfig.MaxScenes
				}
				if savedConfig.MinCharFreq <= 0 {
					savedConfig.MinCharFreq = baseConfig.MinCharFreq
				}

				currentConfig = &savedConfig
			}
		}
	}

	// 保存初始配置到文件
	return SaveConfig()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 紧急情况，返回一个基本配置
		baseConfig, _ := Load()
		return &AppConfig{
			Port:          baseConfig.Port,
			DataDir:       baseConfig.DataDir,
			OutputDir:     baseConfig.OutputDir,
			LogDir:        baseConfig.LogDir,
			DebugMode:     baseConfig.DebugMode,
			StatsDBPath:   baseConfig.StatsDBPath,
			TokenizerDict: baseConfig.TokenizerDict,
			MaxScenes:     baseConfig.MaxScenes,
			MinCharFreq:   baseConfig.MinCharFreq,
		}
	}

	// 返回配置的副本
	configCopy := *currentConfig
	return &configCopy
}

// UpdateAnalysisConfig 更新分析相关配置
func UpdateAnalysisConfig(maxScenes, minCharFreq int, tokenizerDict string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	if maxScenes > 0 {
		currentConfig.MaxScenes = maxScenes
	}
	if minCharFreq > 0 {
		currentConfig.MinCharFreq = minCharFreq
	}
	currentConfig.TokenizerDict = tokenizerDict

	return SaveConfig()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	// 确保目录存在
	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	// 序列化并保存
	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
