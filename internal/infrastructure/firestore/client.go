package firestore

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FirestoreClient Firestoreクライアントのラッパー
type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient Cloud Run ではデフォルト認証、ローカルでは
// GOOGLE_APPLICATION_CREDENTIALS の鍵ファイルがあればそれを使う
func NewFirestoreClient(ctx context.Context, projectID string, logger *zap.Logger) (*FirestoreClient, error) {
	var opts []option.ClientOption

	if os.Getenv("K_SERVICE") != "" {
		logger.Info("☁️ Cloud Run環境: デフォルト認証を使用")
	} else if credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			logger.Warn("⚠️ 認証ファイルが見つからないためデフォルト認証を使用", zap.String("file", credentialsFile))
		} else {
			logger.Info("📄 認証ファイルを使用", zap.String("file", credentialsFile))
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("Firestoreクライアントの作成に失敗: %w", err)
	}

	logger.Info("✅ Firestoreクライアント初期化完了", zap.String("project_id", projectID))
	return &FirestoreClient{client: client}, nil
}

func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}

func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}
