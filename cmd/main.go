package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"PodMatch-App/internal/config"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/domain/service"
	"PodMatch-App/internal/handler"
	"PodMatch-App/internal/infrastructure/database"
	firestoreclient "PodMatch-App/internal/infrastructure/firestore"
	"PodMatch-App/internal/infrastructure/geocoding"
	"PodMatch-App/internal/infrastructure/logger"
	repoimpl "PodMatch-App/internal/repository"
	"PodMatch-App/internal/usecase"
)

// demoCenter メモリ上のデモイベントを配置する中心（サンフランシスコ）
var demoCenter = model.NewCoordinate(37.7749, -122.4194)

// stores 起動時に選択したストア一式
type stores struct {
	pods         repository.PodsRepository
	groups       repository.EventGroupsRepository
	participants repository.ParticipantsRepository
	closers      []func() error
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// run 依存関係を組み立ててサーバーを動かす。
// 失敗はすべて error で返し、defer したクローズとログの Sync を必ず通す。
func run() error {
	cfg, dotenvLoaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if !dotenvLoaded {
		zapLogger.Info("ℹ️ .envファイルが見つからないため環境変数のみを使用します")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Error("❌ ストアの初期化に失敗", zap.String("backend", cfg.StoreBackend), zap.Error(err))
		return fmt.Errorf("ストアの初期化に失敗 (%s): %w", cfg.StoreBackend, err)
	}
	defer func() {
		for _, closeFn := range st.closers {
			if err := closeFn(); err != nil {
				zapLogger.Warn("⚠️ ストアのクローズに失敗", zap.Error(err))
			}
		}
	}()

	eventsRepo, err := openEvents(ctx, cfg)
	if err != nil {
		zapLogger.Error("❌ イベントカタログの初期化に失敗", zap.String("backend", cfg.EventBackend), zap.Error(err))
		return fmt.Errorf("イベントカタログの初期化に失敗 (%s): %w", cfg.EventBackend, err)
	}

	var resolver repository.LocationResolver = geocoding.NewStaticResolver(cfg.FallbackNeighborhood)
	if cfg.LocationResolver == config.ResolverGoogle {
		resolver = geocoding.NewGoogleReverseGeocoder(cfg.GoogleMapsAPIKey, cfg.GeocodeTimeout)
	}
	resolver = geocoding.NewFallbackResolver(resolver, cfg.FallbackNeighborhood, zapLogger)

	// ドメインサービス
	catalog := service.NewEventCatalog(eventsRepo, cfg.NearbyRadiusKm)
	registry := service.NewParticipantRegistry(st.participants)
	matcher := service.NewGroupMatcher(catalog, st.groups, registry, service.GroupMatcherConfig{
		LockTimeout:   cfg.JoinLockTimeout,
		MaxAttempts:   cfg.JoinMaxAttempts,
		RetryInterval: cfg.JoinRetryInterval,
		ClaimTTL:      cfg.JoinClaimTTL,
	}, zapLogger)
	podIndex := service.NewPodIndex(st.pods, zapLogger)
	membership := service.NewPodMembershipService(st.pods, zapLogger)

	// ユースケースとハンドラー
	locationUseCase := usecase.NewLocationUseCase(resolver, podIndex, membership, zapLogger)
	eventUseCase := usecase.NewEventUseCase(catalog, matcher, registry, zapLogger)

	router := handler.NewRouter(
		handler.NewPodHandler(locationUseCase, cfg.NearbyRadiusKm, zapLogger),
		handler.NewEventHandler(eventUseCase, zapLogger),
		zapLogger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("🚀 PodMatch-App server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
			zap.String("events", cfg.EventBackend),
			zap.String("resolver", cfg.LocationResolver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			zapLogger.Error("❌ サーバーの起動に失敗", zap.Error(err))
			return fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zapLogger.Info("🛑 シャットダウンを開始します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("❌ グレースフルシャットダウンに失敗", zap.Error(err))
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	zapLogger.Info("✅ サーバーを停止しました")
	return nil
}

// openStores 設定に応じてPod・グループ・参加記録のストアを1度だけ選択する
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			var err error
			dsn, err = database.SupabaseDSN(cfg.SupabaseURL, cfg.SupabaseDBPassword)
			if err != nil {
				return nil, err
			}
		}
		client, err := database.NewPostgreSQLClient(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureSchema(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		return &stores{
			pods:         repoimpl.NewPostgresPodsRepository(client),
			groups:       repoimpl.NewPostgresEventGroupsRepository(client),
			participants: repoimpl.NewPostgresParticipantsRepository(client),
			closers:      []func() error{client.Close},
		}, nil

	case config.BackendFirestore:
		client, err := firestoreclient.NewFirestoreClient(ctx, cfg.FirestoreProjectID, logger)
		if err != nil {
			return nil, err
		}
		fs := client.GetClient()
		return &stores{
			pods:         repoimpl.NewFirestorePodsRepository(fs),
			groups:       repoimpl.NewFirestoreEventGroupsRepository(fs),
			participants: repoimpl.NewFirestoreParticipantsRepository(fs),
			closers:      []func() error{client.Close},
		}, nil

	case config.BackendMemory:
		logger.Info("💾 メモリストアを使用します（再起動でデータは消えます）")
		return &stores{
			pods:         repoimpl.NewMemoryPodsRepository(),
			groups:       repoimpl.NewMemoryEventGroupsRepository(),
			participants: repoimpl.NewMemoryParticipantsRepository(),
		}, nil

	default:
		return nil, fmt.Errorf("不明な STORE_BACKEND: %q", cfg.StoreBackend)
	}
}

// openEvents 設定に応じてイベントカタログの読み込み元を選択する
func openEvents(ctx context.Context, cfg *config.Config) (repository.EventsRepository, error) {
	switch cfg.EventBackend {
	case config.BackendSupabase:
		client, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.HealthCheck(pingCtx, repoimpl.SupabaseEventsTable); err != nil {
			return nil, err
		}
		return repoimpl.NewSupabaseEventsRepository(client), nil

	case config.BackendMemory:
		return repoimpl.NewMemoryEventsRepository(repoimpl.DemoEvents(demoCenter, time.Now())...), nil

	default:
		return nil, fmt.Errorf("不明な EVENT_BACKEND: %q", cfg.EventBackend)
	}
}
