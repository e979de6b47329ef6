package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
)

type createIntentionRequest struct {
	IntentionType string         `json:"intention_type"`
	Title         string         `json:"title"`
	Description   *string        `json:"description"`
	Source        string         `json:"source"`
	SourceContact map[string]any `json:"source_contact"`
	AssignedTo    *snowflake.ID  `json:"assigned_to"`
	Priority      *int           `json:"priority"`
	IsFixedDate   bool           `json:"is_fixed_date"`
	FixedDate     *Date          `json:"fixed_date"`
	DeadlineDate  *Date          `json:"deadline_date"`
	Metadata      map[string]any `json:"metadata"`
}

type updateIntentionRequest struct {
	Title         *string        `json:"title"`
	Description   *string        `json:"description"`
	SourceContact map[string]any `json:"source_contact"`
	Priority      *int           `json:"priority"`
	FixedDate     *Date          `json:"fixed_date"`
	DeadlineDate  *Date          `json:"deadline_date"`
	Metadata      map[string]any `json:"metadata"`
}

func queryIntentionType(c *gin.Context) *intentiondomain.IntentionType {
	raw := strings.TrimSpace(c.Query("intention_type"))
	if raw == "" {
		return nil
	}
	t := intentiondomain.IntentionType(raw)
	return &t
}

func (s *Server) ListIntentions(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	isActive, ok := queryBool(c, "is_active")
	if !ok {
		return
	}

	resp, err := s.intentionSvc.List(c.Request.Context(), intentiondomain.ListRequest{
		IntentionType: queryIntentionType(c),
		IsActive:      isActive,
		Page:          page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateIntention(c *gin.Context) {
	var req createIntentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	intention, err := s.intentionSvc.Create(c.Request.Context(), intentiondomain.CreateRequest{
		IntentionType: intentiondomain.IntentionType(strings.TrimSpace(req.IntentionType)),
		Title:         req.Title,
		Description:   req.Description,
		Source:        intentiondomain.Source(strings.TrimSpace(req.Source)),
		SourceContact: req.SourceContact,
		AssignedTo:    req.AssignedTo,
		Priority:      req.Priority,
		IsFixedDate:   req.IsFixedDate,
		FixedDate:     req.FixedDate.Ptr(),
		DeadlineDate:  req.DeadlineDate.Ptr(),
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": intention})
}

func (s *Server) UpcomingFixedDates(c *gin.Context) {
	days, ok := queryInt(c, "days_ahead")
	if !ok {
		return
	}
	daysAhead := 0
	if days != nil {
		daysAhead = *days
	}

	items, err := s.intentionSvc.UpcomingFixedDates(c.Request.Context(), daysAhead)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) SearchIntentions(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		AbortWithError(c, newValidationError("q", "required", "search query is required"))
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := s.intentionSvc.Search(c.Request.Context(), intentiondomain.SearchRequest{
		Query:         query,
		IntentionType: queryIntentionType(c),
		Page:          page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetIntention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	intention, err := s.intentionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": intention})
}

func (s *Server) UpdateIntention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateIntentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	intention, err := s.intentionSvc.Update(c.Request.Context(), id, intentiondomain.UpdateRequest{
		Title:         req.Title,
		Description:   req.Description,
		SourceContact: req.SourceContact,
		Priority:      req.Priority,
		FixedDate:     req.FixedDate.Ptr(),
		DeadlineDate:  req.DeadlineDate.Ptr(),
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": intention})
}

func (s *Server) DeactivateIntention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	intention, err := s.intentionSvc.Deactivate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": intention})
}
