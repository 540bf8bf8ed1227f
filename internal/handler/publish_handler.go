package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/creatorflow/internal/middleware"
	"github.com/hitoshi/creatorflow/internal/model"
	"github.com/hitoshi/creatorflow/internal/publish"
)

// FanoutInterface は投稿ハンドラーが必要とするファンアウトのインターフェース。
type FanoutInterface interface {
	// PublishAll は指定プラットフォームへ並行投稿し、全件の結果マップを返す。
	PublishAll(ctx context.Context, userID string, platforms []model.Platform, post publish.Post) map[model.Platform]publish.Result
}

// PublishHandler はソーシャルプラットフォームへの同報投稿のHTTPハンドラー。
type PublishHandler struct {
	fanout FanoutInterface
}

// NewPublishHandler はPublishHandlerを生成する。
func NewPublishHandler(fanout FanoutInterface) *PublishHandler {
	return &PublishHandler{fanout: fanout}
}

// publishRequest は同報投稿リクエストのボディ。
type publishRequest struct {
	Text      string   `json:"text"`
	Platforms []string `json:"platforms"`
	ImageURL  string   `json:"imageUrl"`
}

// Publish は複数プラットフォームへの同報投稿を処理する。
// POST /api/publish
//
// 一部のプラットフォームが失敗してもHTTPステータスは200で、
// 成否はプラットフォームごとの結果マップで返す。
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid JSON body."))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Missing text."))
		return
	}
	if len(req.Platforms) == 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Select at least one platform."))
		return
	}

	platforms := make([]model.Platform, 0, len(req.Platforms))
	for _, raw := range req.Platforms {
		platform, ok := model.ParsePlatform(raw)
		if !ok {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPlatformError(raw))
			return
		}
		platforms = append(platforms, platform)
	}

	results := h.fanout.PublishAll(r.Context(), userID, platforms, publish.Post{
		Text:     req.Text,
		ImageURL: req.ImageURL,
	})

	writeJSON(w, http.StatusOK, map[string]map[model.Platform]publish.Result{"results": results})
}
