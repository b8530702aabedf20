package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// SupabaseClient イベントカタログを読むための PostgREST クライアント
type SupabaseClient struct {
	Client *supabase.Client
}

// NewSupabaseClient プロジェクトURLと anon キーから SupabaseClient を作成
func NewSupabaseClient(projectURL, anonKey string) (*SupabaseClient, error) {
	if projectURL == "" || anonKey == "" {
		return nil, errors.New("Supabaseの接続にはプロジェクトURLと anon キーが必要です")
	}

	client, err := supabase.NewClient(projectURL, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("Supabaseクライアントの初期化に失敗: %w", err)
	}
	return &SupabaseClient{Client: client}, nil
}

// GetClient 内部の supabase.Client を返す
func (sc *SupabaseClient) GetClient() *supabase.Client {
	return sc.Client
}

// HealthCheck table から1行だけ読み、REST API に届いてキーとテーブルが有効なことを確認する。
// postgrest-go は context を受け取らないため、ctx の期限で待つのをやめる。
func (sc *SupabaseClient) HealthCheck(ctx context.Context, table string) error {
	if sc == nil || sc.Client == nil {
		return errors.New("Supabaseクライアントが初期化されていません")
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := sc.Client.From(table).Select("id", "", false).Limit(1, "").Execute()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("Supabaseテーブル %s への疎通確認に失敗: %w", table, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Supabaseテーブル %s への疎通確認がタイムアウト: %w", table, ctx.Err())
	}
}
