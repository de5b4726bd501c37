package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lk2023060901/market-research-backend/internal/extractor"
	"github.com/lk2023060901/market-research-backend/internal/llm"
	"github.com/lk2023060901/market-research-backend/internal/pkg/database"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/minio"
	"github.com/lk2023060901/market-research-backend/internal/pkg/redis"
	"github.com/lk2023060901/market-research-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/market-research-backend/internal/research/biz"
	"github.com/lk2023060901/market-research-backend/internal/websearch/manager"
	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Log       logger.Config     `mapstructure:"log"`
	Database  database.Config   `mapstructure:"database"`
	Redis     redis.Config      `mapstructure:"redis"`
	MinIO     minio.Config      `mapstructure:"minio"`
	Search    SearchConfig      `mapstructure:"search"`
	Extractor extractor.Config  `mapstructure:"extractor"`
	LLM       llm.Config        `mapstructure:"llm"`
	Research  biz.Config        `mapstructure:"research"`
	Pool      workerpool.Config `mapstructure:"pool"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EventHeartbeat  time.Duration `mapstructure:"event_heartbeat"`
}

// SearchConfig is the manager fan-out configuration plus the provider list
type SearchConfig struct {
	manager.Config `mapstructure:",squash"`
	Providers      []types.ProviderConfig `mapstructure:"providers"`
}

// Addr returns host:port of the HTTP listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads path and overlays environment variables, where a key
// such as llm.api_key maps to LLM_API_KEY. Provider api keys can be set
// with SEARCH_<ID>_API_KEY.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for i := range config.Search.Providers {
		p := &config.Search.Providers[i]
		if key := v.GetString(fmt.Sprintf("search.%s.api_key", p.ID)); key != "" {
			p.APIKey = key
		}
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.event_heartbeat", 15*time.Second)

	log := logger.DefaultConfig()
	v.SetDefault("log.level", log.Level)
	v.SetDefault("log.format", log.Format)
	v.SetDefault("log.output", log.Output)
	v.SetDefault("log.enable_caller", log.EnableCaller)
	v.SetDefault("log.enable_stacktrace", log.EnableStacktrace)
	v.SetDefault("log.file.filename", log.File.Filename)
	v.SetDefault("log.file.max_size", log.File.MaxSize)
	v.SetDefault("log.file.max_age", log.File.MaxAge)
	v.SetDefault("log.file.max_backups", log.File.MaxBackups)
	v.SetDefault("log.file.compress", log.File.Compress)

	db := database.DefaultConfig()
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", db.Host)
	v.SetDefault("database.port", db.Port)
	v.SetDefault("database.user", db.User)
	v.SetDefault("database.password", db.Password)
	v.SetDefault("database.dbname", db.DBName)
	v.SetDefault("database.ssl_mode", db.SSLMode)
	v.SetDefault("database.max_idle_conns", db.MaxIdleConns)
	v.SetDefault("database.max_open_conns", db.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", db.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", db.ConnMaxIdleTime)
	v.SetDefault("database.log_level", db.LogLevel)
	v.SetDefault("database.slow_threshold", db.SlowThreshold)
	v.SetDefault("database.prepare_stmt", db.PrepareStmt)
	v.SetDefault("database.timezone", db.Timezone)
	v.SetDefault("database.auto_migrate", db.AutoMigrate)

	rd := redis.DefaultConfig()
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.mode", string(rd.Mode))
	v.SetDefault("redis.addr", rd.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", rd.DB)
	v.SetDefault("redis.key_prefix", rd.KeyPrefix)
	v.SetDefault("redis.pool_size", rd.PoolSize)
	v.SetDefault("redis.min_idle_conns", rd.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rd.DialTimeout)
	v.SetDefault("redis.read_timeout", rd.ReadTimeout)
	v.SetDefault("redis.write_timeout", rd.WriteTimeout)
	v.SetDefault("redis.max_retries", rd.MaxRetries)

	mn := minio.DefaultConfig()
	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", mn.Endpoint)
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.region", mn.Region)
	v.SetDefault("minio.use_ssl", mn.UseSSL)
	v.SetDefault("minio.bucket_lookup", string(mn.BucketLookup))
	v.SetDefault("minio.bucket", mn.Bucket)
	v.SetDefault("minio.request_timeout", mn.RequestTimeout)

	search := manager.DefaultConfig()
	v.SetDefault("search.timeout", search.Timeout)
	v.SetDefault("search.workers", search.Workers)
	v.SetDefault("search.default_max_results", search.DefaultMaxResults)
	v.SetDefault("search.preferred_domains", search.PreferredDomains)

	ext := extractor.DefaultConfig()
	v.SetDefault("extractor.timeout", ext.Timeout)
	v.SetDefault("extractor.min_content_length", ext.MinContentLength)
	v.SetDefault("extractor.min_fallback_length", ext.MinFallbackLength)
	v.SetDefault("extractor.attempts", ext.Attempts)
	v.SetDefault("extractor.retry_backoff", ext.RetryBackoff)
	v.SetDefault("extractor.max_body_size", ext.MaxBodySize)
	v.SetDefault("extractor.cache_ttl", ext.CacheTTL)
	v.SetDefault("extractor.batch_delay", ext.BatchDelay)
	v.SetDefault("extractor.allow_private", ext.AllowPrivate)

	gen := llm.DefaultConfig()
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", gen.Model)
	v.SetDefault("llm.system_prompt", gen.SystemPrompt)
	v.SetDefault("llm.max_tokens", gen.MaxTokens)
	v.SetDefault("llm.temperature", gen.Temperature)
	v.SetDefault("llm.timeout", gen.Timeout)
	v.SetDefault("llm.token_budget", gen.TokenBudget)
	v.SetDefault("llm.encoding", gen.Encoding)

	rs := biz.DefaultConfig()
	v.SetDefault("research.main_results", rs.MainResults)
	v.SetDefault("research.related_results", rs.RelatedResults)
	v.SetDefault("research.default_depth", rs.DefaultDepth)
	v.SetDefault("research.related_delay", rs.RelatedDelay)
	v.SetDefault("research.max_pages", rs.MaxPages)
	v.SetDefault("research.extract_delay", rs.ExtractDelay)
	v.SetDefault("research.min_content", rs.MinContent)
	v.SetDefault("research.analysis_sources", rs.AnalysisSources)
	v.SetDefault("research.source_chars", rs.SourceChars)
	v.SetDefault("research.token_budget", rs.TokenBudget)

	pool := workerpool.DefaultConfig()
	v.SetDefault("pool.size", pool.Size)
	v.SetDefault("pool.expiry_duration", pool.ExpiryDuration)
	v.SetDefault("pool.release_timeout", pool.ReleaseTimeout)
}
