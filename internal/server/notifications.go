package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
)

type createNotificationRequest struct {
	NotificationType  string        `json:"notification_type"`
	Title             string        `json:"title"`
	Message           string        `json:"message"`
	Priority          string        `json:"priority"`
	ScheduledFor      *time.Time    `json:"scheduled_for"`
	RelatedEntityType *string       `json:"related_entity_type"`
	RelatedEntityID   *snowflake.ID `json:"related_entity_id"`
}

func (s *Server) ListNotifications(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	isRead, ok := queryBool(c, "is_read")
	if !ok {
		return
	}
	var typ *notificationdomain.Type
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		t := notificationdomain.Type(raw)
		typ = &t
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), notificationdomain.ListRequest{
		IsRead: isRead,
		Type:   typ,
		Page:   page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	n, err := s.notificationSvc.Create(c.Request.Context(), notificationdomain.CreateRequest{
		NotificationType:  notificationdomain.Type(strings.TrimSpace(req.NotificationType)),
		Title:             req.Title,
		Message:           req.Message,
		Priority:          notificationdomain.Priority(strings.TrimSpace(req.Priority)),
		ScheduledFor:      req.ScheduledFor,
		RelatedEntityType: req.RelatedEntityType,
		RelatedEntityID:   req.RelatedEntityID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": n})
}

func (s *Server) UnreadNotificationCount(c *gin.Context) {
	count, err := s.notificationSvc.UnreadCount(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"unread_count": count}})
}

func (s *Server) UrgentNotifications(c *gin.Context) {
	items, err := s.notificationSvc.Urgent(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	updated, err := s.notificationSvc.MarkAllRead(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated_count": updated}})
}

func (s *Server) GetNotification(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := s.notificationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) DeleteNotification(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.notificationSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	n, err := s.notificationSvc.MarkRead(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": n})
}

func (s *Server) MarkNotificationUnread(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	n, err := s.notificationSvc.MarkUnread(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": n})
}
