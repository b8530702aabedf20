package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, BackendMemory, cfg.EventBackend)
	assert.Equal(t, ResolverStatic, cfg.LocationResolver)
	assert.Equal(t, "Unknown Area", cfg.FallbackNeighborhood)
	assert.Equal(t, 10.0, cfg.NearbyRadiusKm)
	assert.Equal(t, 3*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 2*time.Second, cfg.JoinLockTimeout)
	assert.Equal(t, 3, cfg.JoinMaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.JoinRetryInterval)
	assert.Equal(t, 30*time.Second, cfg.JoinClaimTTL)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/podmatch?sslmode=disable")
	t.Setenv("JOIN_LOCK_TIMEOUT", "500ms")
	t.Setenv("NEARBY_RADIUS_KM", "2.5")
	t.Setenv("JOIN_CLAIM_TTL", "1m")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 500*time.Millisecond, cfg.JoinLockTimeout)
	assert.Equal(t, 2.5, cfg.NearbyRadiusKm)
	assert.Equal(t, time.Minute, cfg.JoinClaimTTL)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"数値でない", map[string]string{"JOIN_MAX_ATTEMPTS": "many"}, "parse env:"},
		{"不明なストア", map[string]string{"STORE_BACKEND": "redis"}, "STORE_BACKEND"},
		{"postgresの接続情報なし", map[string]string{"STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"firestoreのプロジェクトなし", map[string]string{"STORE_BACKEND": "firestore"}, "FIRESTORE_PROJECT_ID"},
		{"supabaseのキーなし", map[string]string{"EVENT_BACKEND": "supabase", "SUPABASE_URL": "https://x.supabase.co"}, "SUPABASE_ANON_KEY"},
		{"googleのキーなし", map[string]string{"LOCATION_RESOLVER": "google"}, "GOOGLE_MAPS_API_KEY"},
		{"再試行回数0", map[string]string{"JOIN_MAX_ATTEMPTS": "0"}, "JOIN_MAX_ATTEMPTS"},
		{"仮押さえの期限が排他待ちより短い", map[string]string{"JOIN_CLAIM_TTL": "1s"}, "JOIN_CLAIM_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FALLBACK_NEIGHBORHOOD=Somewhere\n"), 0o600))
	// godotenv は既存の環境変数を上書きしないので、t.Setenv で後片付けだけ登録しておく
	t.Setenv("FALLBACK_NEIGHBORHOOD", "")
	require.NoError(t, os.Unsetenv("FALLBACK_NEIGHBORHOOD"))

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "Somewhere", cfg.FallbackNeighborhood)

	_, loaded, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, loaded)
}
