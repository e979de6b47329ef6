package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
)

type celebrationDetailsRequest struct {
	MassTime             *string `json:"mass_time"`
	Location             *string `json:"location"`
	Notes                *string `json:"notes"`
	AttendeesCount       *int    `json:"attendees_count"`
	SpecialCircumstances *string `json:"special_circumstances"`
}

func (r celebrationDetailsRequest) toDomain() celebrationdomain.Details {
	return celebrationdomain.Details{
		MassTime:             r.MassTime,
		Location:             r.Location,
		Notes:                r.Notes,
		AttendeesCount:       r.AttendeesCount,
		SpecialCircumstances: r.SpecialCircumstances,
	}
}

type createCelebrationRequest struct {
	CelebrationDate *Date         `json:"celebration_date"`
	IntentionID     *snowflake.ID `json:"intention_id"`
	BulkIntentionID *snowflake.ID `json:"bulk_intention_id"`
	celebrationDetailsRequest
}

type updateCelebrationRequest struct {
	CelebrationDate *Date `json:"celebration_date"`
	celebrationDetailsRequest
}

// yearMonth reads the year and month query parameters, defaulting to the current month.
func (s *Server) yearMonth(c *gin.Context) (int, int, bool) {
	now := s.clock.Now()
	year, ok := queryInt(c, "year")
	if !ok {
		return 0, 0, false
	}
	month, ok := queryInt(c, "month")
	if !ok {
		return 0, 0, false
	}
	y, m := now.Year(), int(now.Month())
	if year != nil {
		y = *year
	}
	if month != nil {
		m = *month
	}
	return y, m, true
}

func (s *Server) ListCelebrations(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	start, ok := queryDate(c, "start_date")
	if !ok {
		return
	}
	end, ok := queryDate(c, "end_date")
	if !ok {
		return
	}

	resp, err := s.celebrationSvc.List(c.Request.Context(), celebrationdomain.ListRequest{
		StartDate:     start,
		EndDate:       end,
		IntentionType: optionalString(c.Query("intention_type")),
		Page:          page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCelebration(c *gin.Context) {
	var req createCelebrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.celebrationSvc.Create(c.Request.Context(), celebrationdomain.CreateRequest{
		CelebrationDate: req.CelebrationDate.Ptr(),
		IntentionID:     req.IntentionID,
		BulkIntentionID: req.BulkIntentionID,
		Details:         req.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": result.Message, "data": result})
}

func (s *Server) TodayCelebrations(c *gin.Context) {
	items, err := s.celebrationSvc.Today(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) MonthlyCelebrationSummary(c *gin.Context) {
	year, month, ok := s.yearMonth(c)
	if !ok {
		return
	}

	summary, err := s.celebrationSvc.MonthlySummary(c.Request.Context(), year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) MonthlyRegisterPDF(c *gin.Context) {
	year, month, ok := s.yearMonth(c)
	if !ok {
		return
	}

	doc, err := s.reportSvc.MonthlyRegister(c.Request.Context(), year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func (s *Server) SearchCelebrations(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		AbortWithError(c, newValidationError("q", "required", "search query is required"))
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	start, ok := queryDate(c, "start_date")
	if !ok {
		return
	}
	end, ok := queryDate(c, "end_date")
	if !ok {
		return
	}

	resp, err := s.celebrationSvc.Search(c.Request.Context(), celebrationdomain.SearchRequest{
		Query:         query,
		IntentionType: optionalString(c.Query("intention_type")),
		StartDate:     start,
		EndDate:       end,
		Page:          page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCelebration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := s.celebrationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) UpdateCelebration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateCelebrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.celebrationSvc.Update(c.Request.Context(), id, celebrationdomain.UpdateRequest{
		CelebrationDate: req.CelebrationDate.Ptr(),
		Details:         req.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) DeleteCelebration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.celebrationSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "celebration deleted"})
}
