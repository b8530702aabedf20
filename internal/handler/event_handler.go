package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/usecase"
)

// EventHandler はイベントとグループ参加のハンドラー
type EventHandler struct {
	eventUseCase usecase.EventUseCase
	logger       *zap.Logger
}

// NewEventHandler は新しいEventHandlerインスタンスを作成
func NewEventHandler(eventUseCase usecase.EventUseCase, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventUseCase: eventUseCase,
		logger:       logger,
	}
}

type listEventsQuery struct {
	Category string   `form:"category" binding:"omitempty,oneof=Learn Connect Fix"`
	Lat      *float64 `form:"lat" binding:"omitempty,gte=-90,lte=90"`
	Lng      *float64 `form:"lng" binding:"omitempty,gte=-180,lte=180"`
	RadiusKm float64  `form:"radius_km" binding:"omitempty,gt=0"`
}

// user_id とサイズの検証はドメイン側で行う（空ユーザーは412、不明なサイズは400）
type joinEventRequest struct {
	UserID    string `json:"user_id"`
	SizeClass string `json:"size_class"`
}

// ListEvents は受付中のイベント一覧を返す
// GET /events?category=&lat=&lng=&radius_km=
func (h *EventHandler) ListEvents(c *gin.Context) {
	var q listEventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	if (q.Lat == nil) != (q.Lng == nil) {
		respondError(c, h.logger, apperror.InvalidArgument("lat と lng は両方指定してください"))
		return
	}

	filter := model.EventFilter{Category: q.Category, RadiusKm: q.RadiusKm}
	if q.Lat != nil {
		near := model.NewCoordinate(*q.Lat, *q.Lng)
		filter.Near = &near
	}

	events, err := h.eventUseCase.ListOpenEvents(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEvent はイベントの詳細を返す
// GET /events/:eventId
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.eventUseCase.GetEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// JoinEvent はユーザーをイベントのグループに割り当てる
// POST /events/:eventId/join
func (h *EventHandler) JoinEvent(c *gin.Context) {
	var req joinEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.eventUseCase.JoinEvent(c.Request.Context(), model.JoinRequest{
		UserID:    req.UserID,
		EventID:   c.Param("eventId"),
		SizeClass: req.SizeClass,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyJoined {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// ListGroups はイベントのグループ一覧を返す
// GET /events/:eventId/groups
func (h *EventHandler) ListGroups(c *gin.Context) {
	groups, err := h.eventUseCase.ListGroups(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup はグループの詳細を返す
// GET /events/:eventId/groups/:groupId
func (h *EventHandler) GetGroup(c *gin.Context) {
	group, err := h.eventUseCase.GetGroup(c.Request.Context(), c.Param("eventId"), c.Param("groupId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// GetGroupRoster はグループのメンバー一覧を返す
// GET /events/:eventId/groups/:groupId/roster
func (h *EventHandler) GetGroupRoster(c *gin.Context) {
	roster, err := h.eventUseCase.GetGroupRoster(c.Request.Context(), c.Param("eventId"), c.Param("groupId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"group_id": c.Param("groupId"),
		"members":  roster,
	})
}

// ListParticipants はイベントの参加者一覧を返す
// GET /events/:eventId/participants
func (h *EventHandler) ListParticipants(c *gin.Context) {
	participants, err := h.eventUseCase.ListParticipants(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// ListUserEvents はユーザーが参加しているイベント一覧を返す
// GET /users/:userId/events
func (h *EventHandler) ListUserEvents(c *gin.Context) {
	events, err := h.eventUseCase.ListUserEvents(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetParticipation はユーザーのイベント参加記録を返す
// GET /users/:userId/events/:eventId/participation
func (h *EventHandler) GetParticipation(c *gin.Context) {
	p, err := h.eventUseCase.GetParticipation(c.Request.Context(), c.Param("userId"), c.Param("eventId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
