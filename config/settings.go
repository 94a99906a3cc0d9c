package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the full runtime configuration: defaults, then the optional YAML
// file named by SETTINGS_FILE, then environment variables.
type Settings struct {
	HTTP        HTTPSettings        `yaml:"http"`
	Log         LogSettings         `yaml:"log"`
	Auth        AuthSettings        `yaml:"auth"`
	Postgres    PostgresSettings    `yaml:"postgres"`
	Redis       RedisSettings       `yaml:"redis"`
	Mongo       MongoSettings       `yaml:"mongo"`
	Google      GoogleSettings      `yaml:"google"`
	Translation TranslationSettings `yaml:"translation"`
	Transport   TransportSettings   `yaml:"transport"`
	Pipeline    PipelineSettings    `yaml:"pipeline"`
	Reassembly  ReassemblySettings  `yaml:"reassembly"`
	Retry       RetrySettings       `yaml:"retry"`
}

type HTTPSettings struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json|text
}

type AuthSettings struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type PostgresSettings struct {
	URI         string `yaml:"uri"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type RedisSettings struct {
	Addr string `yaml:"addr"` // host:port or redis:// URL
}

type MongoSettings struct {
	URI          string        `yaml:"uri"`
	DB           string        `yaml:"db"`
	UtteranceTTL time.Duration `yaml:"utterance_ttl"`
}

type GoogleSettings struct {
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
	ImageBucket     string `yaml:"image_bucket"` // empty disables profile image upload
	PublicImages    bool   `yaml:"public_images"`
}

type TranslationSettings struct {
	Engine        string        `yaml:"engine"` // google|libre
	LibreURL      string        `yaml:"libre_url"`
	LibreAPIKey   string        `yaml:"libre_api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	RedisCache    bool          `yaml:"redis_cache"`
}

type TransportSettings struct {
	Kind      string        `yaml:"kind"` // livekit|redis
	Host      string        `yaml:"host"`
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PipelineSettings struct {
	SourceLanguage string `yaml:"source_language"`
	DegradedMode   bool   `yaml:"degraded_mode"`
	DemoText       string `yaml:"demo_text"`
}

type ReassemblySettings struct {
	Shards        int           `yaml:"shards"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type RetrySettings struct {
	Workers     int           `yaml:"workers"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

func DefaultSettings() Settings {
	return Settings{
		HTTP:     HTTPSettings{Port: "8080", ReadTimeout: 5 * time.Minute, WriteTimeout: 5 * time.Minute},
		Log:      LogSettings{Level: "info", Format: "json"},
		Auth:     AuthSettings{TokenTTL: 24 * time.Hour},
		Postgres: PostgresSettings{AutoMigrate: true},
		Mongo:    MongoSettings{DB: "speechrelay", UtteranceTTL: 7 * 24 * time.Hour},
		Translation: TranslationSettings{
			Engine:        "google",
			Timeout:       10 * time.Second,
			CacheTTL:      24 * time.Hour,
			SweepInterval: time.Hour,
			RedisCache:    true,
		},
		Transport:  TransportSettings{Kind: "livekit", Timeout: 10 * time.Second},
		Pipeline:   PipelineSettings{SourceLanguage: "en-US"},
		Reassembly: ReassemblySettings{Shards: 32, IdleTimeout: 30 * time.Second, SweepInterval: 60 * time.Second},
		Retry:      RetrySettings{Workers: 2, MaxAttempts: 3, Backoff: 500 * time.Millisecond},
	}
}

// LoadSettings reads configuration from SETTINGS_FILE (if set) and the environment.
func LoadSettings() (Settings, error) {
	s := DefaultSettings()

	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(b, &s); err != nil {
			return s, fmt.Errorf("parse settings file %s: %w", path, err)
		}
	}

	if err := s.applyEnv(); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func (s *Settings) applyEnv() error {
	var errs []error
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(&s.HTTP.Port, "PORT")
	dur(&s.HTTP.ReadTimeout, "HTTP_READ_TIMEOUT")
	dur(&s.HTTP.WriteTimeout, "HTTP_WRITE_TIMEOUT")

	str(&s.Log.Level, "LOG_LEVEL")
	str(&s.Log.Format, "LOG_FORMAT")

	str(&s.Auth.JWTSecret, "JWT_SECRET")
	dur(&s.Auth.TokenTTL, "JWT_TTL")

	str(&s.Postgres.URI, "POSTGRES_URI")
	flag(&s.Postgres.AutoMigrate, "POSTGRES_AUTO_MIGRATE")
	str(&s.Redis.Addr, "REDIS_ADDR", "REDIS_URI", "REDIS_URL")
	str(&s.Mongo.URI, "MONGO_URI")
	str(&s.Mongo.DB, "MONGO_DB")
	dur(&s.Mongo.UtteranceTTL, "UTTERANCE_TTL")

	str(&s.Google.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	str(&s.Google.ProjectID, "GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	str(&s.Google.ImageBucket, "GCS_IMAGE_BUCKET")
	flag(&s.Google.PublicImages, "GCS_PUBLIC_IMAGES")

	str(&s.Translation.Engine, "TRANSLATION_ENGINE")
	str(&s.Translation.LibreURL, "LIBRETRANSLATE_URL")
	str(&s.Translation.LibreAPIKey, "LIBRETRANSLATE_API_KEY")
	dur(&s.Translation.Timeout, "TRANSLATION_TIMEOUT")
	dur(&s.Translation.CacheTTL, "TRANSLATION_CACHE_TTL")
	dur(&s.Translation.SweepInterval, "TRANSLATION_SWEEP_INTERVAL")
	flag(&s.Translation.RedisCache, "TRANSLATION_REDIS_CACHE")

	str(&s.Transport.Kind, "TRANSPORT")
	str(&s.Transport.Host, "LIVEKIT_HOST", "LIVEKIT_URL")
	str(&s.Transport.APIKey, "LIVEKIT_API_KEY")
	str(&s.Transport.APISecret, "LIVEKIT_API_SECRET")
	dur(&s.Transport.Timeout, "LIVEKIT_TIMEOUT")

	str(&s.Pipeline.SourceLanguage, "SOURCE_LANGUAGE")
	flag(&s.Pipeline.DegradedMode, "DEGRADED_MODE")
	str(&s.Pipeline.DemoText, "DEMO_TEXT")

	num(&s.Reassembly.Shards, "REASSEMBLY_SHARDS")
	dur(&s.Reassembly.IdleTimeout, "REASSEMBLY_IDLE_TIMEOUT")
	dur(&s.Reassembly.SweepInterval, "REASSEMBLY_SWEEP_INTERVAL")

	num(&s.Retry.Workers, "BROADCAST_RETRY_WORKERS")
	num(&s.Retry.MaxAttempts, "BROADCAST_RETRY_MAX_ATTEMPTS")
	dur(&s.Retry.Backoff, "BROADCAST_RETRY_BACKOFF")

	return errors.Join(errs...)
}

func (s Settings) Validate() error {
	var errs []error
	if s.HTTP.Port == "" {
		errs = append(errs, errors.New("http.port is required"))
	}
	if s.HTTP.ReadTimeout <= 0 || s.HTTP.WriteTimeout <= 0 {
		errs = append(errs, errors.New("http timeouts must be positive"))
	}
	if s.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if s.Postgres.URI == "" {
		errs = append(errs, errors.New("POSTGRES_URI is required"))
	}
	if s.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR (or REDIS_URI/REDIS_URL) is required"))
	}
	if s.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}

	switch strings.ToLower(s.Translation.Engine) {
	case "google":
		if s.Google.ProjectID == "" {
			errs = append(errs, errors.New("GOOGLE_PROJECT_ID is required for the google translation engine"))
		}
	case "libre":
		if s.Translation.LibreURL == "" {
			errs = append(errs, errors.New("LIBRETRANSLATE_URL is required for the libre translation engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown translation engine %q", s.Translation.Engine))
	}

	switch strings.ToLower(s.Transport.Kind) {
	case "livekit":
		if s.Transport.Host == "" {
			errs = append(errs, errors.New("LIVEKIT_HOST is required for the livekit transport"))
		}
	case "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", s.Transport.Kind))
	}
	// Join tokens are minted for either transport.
	if s.Transport.APIKey == "" || s.Transport.APISecret == "" {
		errs = append(errs, errors.New("LIVEKIT_API_KEY and LIVEKIT_API_SECRET are required"))
	}

	if s.Reassembly.Shards <= 0 {
		errs = append(errs, errors.New("reassembly.shards must be positive"))
	}
	if s.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry.max_attempts must be positive"))
	}
	return errors.Join(errs...)
}
