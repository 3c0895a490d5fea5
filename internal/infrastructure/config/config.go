package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	FlavorDB    UpstreamConfig  `mapstructure:"flavordb"`
	RecipeDB    UpstreamConfig  `mapstructure:"recipedb"`
	Matcher     MatcherConfig   `mapstructure:"matcher"`
	Ranker      RankerConfig    `mapstructure:"ranker"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// UpstreamConfig 上游資料庫（FlavorDB / RecipeDB）配置
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MatcherConfig 食材比對器的門檻設定
// 原始比對策略的門檻屬於配置而非常數，方便依資料來源調整
type MatcherConfig struct {
	ContainmentFloor      float64 `mapstructure:"containment_floor"`       // 包含比對的最低信心值
	TokenOverlapThreshold float64 `mapstructure:"token_overlap_threshold"` // 詞彙重疊比對的接受門檻
}

// RankerConfig 替代排序器設定
type RankerConfig struct {
	DefaultLimit  int `mapstructure:"default_limit"`  // 未指定 limit 時的回傳筆數
	MaxCandidates int `mapstructure:"max_candidates"` // 預設候選池的上限
	FetchWorkers  int `mapstructure:"fetch_workers"`  // 併發抓取候選風味資料的 worker 數
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 快取鏡像配置
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件
	if err := godotenv.Load(); err != nil {
		if !strings.Contains(err.Error(), "no such file") {
			return nil, err
		}
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("flavordb.base_url", "FLAVORDB_BASE_URL")
	viper.BindEnv("flavordb.token", "FLAVORDB_AUTH_TOKEN")
	viper.BindEnv("recipedb.base_url", "RECIPEDB_BASE_URL")
	viper.BindEnv("recipedb.token", "RECIPEDB_AUTH_TOKEN")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration",
		"flavordb:", viper.GetString("flavordb.base_url"),
		"recipedb:", viper.GetString("recipedb.base_url"),
		"token:", maskToken(viper.GetString("flavordb.token")))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// RecipeDB 未單獨給 token 時沿用 FlavorDB 的（上游為同一組金鑰體系）
	if config.RecipeDB.Token == "" {
		config.RecipeDB.Token = config.FlavorDB.Token
	}

	return &config, nil
}

// maskToken 遮罩 token，只顯示前後各 4 個字符
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "flavor-remix")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 上游設定
	viper.SetDefault("flavordb.base_url", "http://cosylab.iiitd.edu.in:6969/flavordb")
	viper.SetDefault("flavordb.timeout", "15s")
	viper.SetDefault("recipedb.base_url", "http://cosylab.iiitd.edu.in:6969")
	viper.SetDefault("recipedb.timeout", "20s")

	// 比對器設定
	viper.SetDefault("matcher.containment_floor", 0.6)
	viper.SetDefault("matcher.token_overlap_threshold", 0.5)

	// 排序器設定
	viper.SetDefault("ranker.default_limit", 5)
	viper.SetDefault("ranker.max_candidates", 40)
	viper.SetDefault("ranker.fetch_workers", 5)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 去重窗口預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證上游設定
	if config.FlavorDB.BaseURL == "" {
		return fmt.Errorf("flavordb base url is required")
	}
	if config.RecipeDB.BaseURL == "" {
		return fmt.Errorf("recipedb base url is required")
	}
	if config.FlavorDB.Timeout <= 0 || config.RecipeDB.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}

	// 驗證比對器設定
	if config.Matcher.ContainmentFloor <= 0 || config.Matcher.ContainmentFloor > 1 {
		return fmt.Errorf("invalid matcher containment floor")
	}
	if config.Matcher.TokenOverlapThreshold <= 0 || config.Matcher.TokenOverlapThreshold > 1 {
		return fmt.Errorf("invalid matcher token overlap threshold")
	}

	// 驗證排序器設定
	if config.Ranker.DefaultLimit <= 0 {
		return fmt.Errorf("invalid ranker default limit")
	}
	if config.Ranker.FetchWorkers <= 0 {
		return fmt.Errorf("invalid ranker fetch workers")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	return nil
}
