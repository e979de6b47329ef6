package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
)

type createBulkIntentionRequest struct {
	IntentionID      snowflake.ID `json:"intention_id"`
	TotalCount       int          `json:"total_count"`
	StartDate        *Date        `json:"start_date"`
	EstimatedEndDate *Date        `json:"estimated_end_date"`
	Notes            *string      `json:"notes"`
}

type updateBulkIntentionRequest struct {
	Notes            *string `json:"notes"`
	EstimatedEndDate *Date   `json:"estimated_end_date"`
}

type celebrateBulkRequest struct {
	CelebrationDate *Date `json:"celebration_date"`
}

type pauseBulkRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) ListBulkIntentions(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	status := bulkdomain.FilterAll
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status = bulkdomain.StatusFilter(raw)
	}

	resp, err := s.bulkSvc.List(c.Request.Context(), bulkdomain.ListRequest{Status: status, Page: page})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateBulkIntention(c *gin.Context) {
	var req createBulkIntentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	bulk, err := s.bulkSvc.Create(c.Request.Context(), bulkdomain.CreateRequest{
		IntentionID:      req.IntentionID,
		TotalCount:       req.TotalCount,
		StartDate:        req.StartDate.Ptr(),
		EstimatedEndDate: req.EstimatedEndDate.Ptr(),
		Notes:            req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": bulk})
}

func (s *Server) LowCountBulkIntentions(c *gin.Context) {
	threshold, ok := queryInt(c, "threshold")
	if !ok {
		return
	}
	limit := 0
	if threshold != nil {
		limit = *threshold
	}

	res, err := s.bulkSvc.LowCount(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res.Items, "threshold": res.Threshold})
}

func (s *Server) GetBulkIntention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := s.bulkSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) UpdateBulkIntention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateBulkIntentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	bulk, err := s.bulkSvc.Update(c.Request.Context(), id, bulkdomain.UpdateRequest{
		Notes:            req.Notes,
		EstimatedEndDate: req.EstimatedEndDate.Ptr(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bulk})
}

// CelebrateBulkIntention records one Mass against a batch. The body is optional.
func (s *Server) CelebrateBulkIntention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req celebrateBulkRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	result, err := s.celebrationSvc.CelebrateBulkIntention(c.Request.Context(), id, req.CelebrationDate.Ptr())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (s *Server) PauseBulkIntention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req pauseBulkRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	bulk, err := s.bulkSvc.Pause(c.Request.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bulk})
}

func (s *Server) ResumeBulkIntention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bulk, err := s.bulkSvc.Resume(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bulk})
}

func (s *Server) ListBulkCelebrations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := s.celebrationSvc.ListByBulkIntention(c.Request.Context(), id, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BulkPauseHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	events, err := s.bulkSvc.PauseHistory(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}
