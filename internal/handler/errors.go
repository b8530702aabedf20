package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
)

// retryAfterSeconds 排他待ちに負けたリクエストへ返す再試行の目安
const retryAfterSeconds = "1"

// statusFor エラーコードからHTTPステータスを決める
func statusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperror.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case apperror.CodePermissionDenied:
		return http.StatusForbidden
	case apperror.CodeCapacityRaceLost:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError ドメインエラーを {"error": code, "message": ...} で返す
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	code := apperror.CodeOf(err)
	status := statusFor(code)

	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		c.Header("Retry-After", retryAfterSeconds)
		message = "混み合っているため参加処理を完了できませんでした。しばらくしてから再試行してください"
	case http.StatusInternalServerError:
		logger.Error("❌ リクエスト処理に失敗",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		code = apperror.CodeUnknown
		message = "サーバー内部でエラーが発生しました"
	}

	c.JSON(status, gin.H{
		"error":   code,
		"message": message,
	})
}

// respondBindError バインド・バリデーションエラーを400で返す
func respondBindError(c *gin.Context, err error) {
	body := gin.H{
		"error":   apperror.CodeInvalidArgument,
		"message": "リクエストの形式が正しくありません",
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]gin.H, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, gin.H{
				"field": fe.Field(),
				"rule":  fe.Tag(),
				"param": fe.Param(),
			})
		}
		body["details"] = details
	} else {
		body["details"] = err.Error()
	}

	c.JSON(http.StatusBadRequest, body)
}
