package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/usecase"
)

// PodHandler は位置情報とPodのハンドラー
type PodHandler struct {
	locationUseCase usecase.LocationUseCase
	defaultRadiusKm float64
	logger          *zap.Logger
}

// NewPodHandler は新しいPodHandlerインスタンスを作成
func NewPodHandler(locationUseCase usecase.LocationUseCase, defaultRadiusKm float64, logger *zap.Logger) *PodHandler {
	return &PodHandler{
		locationUseCase: locationUseCase,
		defaultRadiusKm: defaultRadiusKm,
		logger:          logger,
	}
}

type updateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

type nearbyPodsQuery struct {
	Lat      *float64 `form:"lat" binding:"required,gte=-90,lte=90"`
	Lng      *float64 `form:"lng" binding:"required,gte=-180,lte=180"`
	RadiusKm *float64 `form:"radius_km" binding:"omitempty,gte=0"`
}

// PutUserLocation はユーザーの位置情報を更新してPodに参加させる
// PUT /users/:userId/location
func (h *PodHandler) PutUserLocation(c *gin.Context) {
	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	coord := model.NewCoordinate(*req.Latitude, *req.Longitude)
	res, err := h.locationUseCase.UpdateUserLocation(c.Request.Context(), c.Param("userId"), coord)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// GetNearbyPods は近くのPod一覧を返す
// GET /pods/nearby?lat=&lng=&radius_km=
func (h *PodHandler) GetNearbyPods(c *gin.Context) {
	var q nearbyPodsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	radius := h.defaultRadiusKm
	if q.RadiusKm != nil {
		radius = *q.RadiusKm
	}

	podIDs, err := h.locationUseCase.FindNearbyPods(c.Request.Context(), model.NewCoordinate(*q.Lat, *q.Lng), radius)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pod_ids":   podIDs,
		"radius_km": radius,
	})
}

// GetPod はPodの詳細を返す
// GET /pods/:podId
func (h *PodHandler) GetPod(c *gin.Context) {
	pod, err := h.locationUseCase.GetPod(c.Request.Context(), c.Param("podId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pod)
}

// GetPodMembers はPodのメンバー一覧を返す
// GET /pods/:podId/members
func (h *PodHandler) GetPodMembers(c *gin.Context) {
	members, err := h.locationUseCase.ListPodMembers(c.Request.Context(), c.Param("podId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pod_id":  c.Param("podId"),
		"members": members,
	})
}
