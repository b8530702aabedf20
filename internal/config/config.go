package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// バックエンド種別
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendSupabase  = "supabase"

	ResolverStatic = "static"
	ResolverGoogle = "google"
)

// Config 環境変数から読み込むアプリケーション設定
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// ストアは起動時に1度だけ選択する
	StoreBackend     string `env:"STORE_BACKEND" envDefault:"memory"`
	EventBackend     string `env:"EVENT_BACKEND" envDefault:"memory"`
	LocationResolver string `env:"LOCATION_RESOLVER" envDefault:"static"`

	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseDBPassword string `env:"SUPABASE_DB_PASSWORD"`
	DatabaseURL        string `env:"DATABASE_URL"` // 指定時は Supabase から組み立てる接続文字列より優先
	FirestoreProjectID string `env:"FIRESTORE_PROJECT_ID"`
	GoogleMapsAPIKey   string `env:"GOOGLE_MAPS_API_KEY"`

	GeocodeTimeout       time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"3s"`
	FallbackNeighborhood string        `env:"FALLBACK_NEIGHBORHOOD" envDefault:"Unknown Area"`
	NearbyRadiusKm       float64       `env:"NEARBY_RADIUS_KM" envDefault:"10"`

	JoinLockTimeout   time.Duration `env:"JOIN_LOCK_TIMEOUT" envDefault:"2s"`
	JoinMaxAttempts   int           `env:"JOIN_MAX_ATTEMPTS" envDefault:"3"`
	JoinRetryInterval time.Duration `env:"JOIN_RETRY_INTERVAL" envDefault:"50ms"`
	JoinClaimTTL      time.Duration `env:"JOIN_CLAIM_TTL" envDefault:"30s"`
}

// Load .env があれば読み込み、環境変数から設定を作成して検証する。
// .env がないのはエラーではない（Cloud Run などでは環境変数のみ）。
func Load(envFiles ...string) (*Config, bool, error) {
	dotenvLoaded := godotenv.Load(envFiles...) == nil

	cfg, err := Parse()
	if err != nil {
		return nil, dotenvLoaded, err
	}
	return cfg, dotenvLoaded, nil
}

// Parse 環境変数のみから設定を作成して検証する
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 選択されたバックエンドに必要な設定が揃っているかチェック
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" && (c.SupabaseURL == "" || c.SupabaseDBPassword == "") {
			errs = append(errs, errors.New("STORE_BACKEND=postgres には DATABASE_URL または SUPABASE_URL と SUPABASE_DB_PASSWORD が必要です"))
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			errs = append(errs, errors.New("STORE_BACKEND=firestore には FIRESTORE_PROJECT_ID が必要です"))
		}
	default:
		errs = append(errs, fmt.Errorf("不明な STORE_BACKEND: %q", c.StoreBackend))
	}

	switch c.EventBackend {
	case BackendMemory:
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("EVENT_BACKEND=supabase には SUPABASE_URL と SUPABASE_ANON_KEY が必要です"))
		}
	default:
		errs = append(errs, fmt.Errorf("不明な EVENT_BACKEND: %q", c.EventBackend))
	}

	switch c.LocationResolver {
	case ResolverStatic:
	case ResolverGoogle:
		if c.GoogleMapsAPIKey == "" {
			errs = append(errs, errors.New("LOCATION_RESOLVER=google には GOOGLE_MAPS_API_KEY が必要です"))
		}
	default:
		errs = append(errs, fmt.Errorf("不明な LOCATION_RESOLVER: %q", c.LocationResolver))
	}

	if c.NearbyRadiusKm < 0 {
		errs = append(errs, fmt.Errorf("NEARBY_RADIUS_KM は0以上である必要があります: %v", c.NearbyRadiusKm))
	}
	if c.JoinMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("JOIN_MAX_ATTEMPTS は1以上である必要があります: %d", c.JoinMaxAttempts))
	}
	if c.JoinClaimTTL <= c.JoinLockTimeout {
		errs = append(errs, fmt.Errorf("JOIN_CLAIM_TTL は JOIN_LOCK_TIMEOUT より長い必要があります: %s", c.JoinClaimTTL))
	}

	return errors.Join(errs...)
}
