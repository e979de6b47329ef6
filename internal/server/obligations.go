package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
)

type updateTargetRequest struct {
	TargetCount int `json:"target_count"`
}

func periodParams(c *gin.Context) (int, int, bool) {
	year, ok := pathInt(c, "year")
	if !ok {
		return 0, 0, false
	}
	month, ok := pathInt(c, "month")
	if !ok {
		return 0, 0, false
	}
	return year, month, true
}

func (s *Server) ListObligations(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}

	resp, err := s.obligationSvc.List(c.Request.Context(), obligationdomain.ListRequest{Year: year, Page: page})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CurrentObligation(c *gin.Context) {
	view, err := s.obligationSvc.Current(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) IncompleteObligations(c *gin.Context) {
	monthsBack, ok := queryInt(c, "months_back")
	if !ok {
		return
	}
	n := 0
	if monthsBack != nil {
		n = *monthsBack
	}

	items, err := s.obligationSvc.Incomplete(c.Request.Context(), n)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) YearlyObligationSummary(c *gin.Context) {
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}
	y := s.clock.Now().Year()
	if year != nil {
		y = *year
	}

	summary, err := s.obligationSvc.YearlySummary(c.Request.Context(), y)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GetObligation(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}

	view, err := s.obligationSvc.Get(c.Request.Context(), year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) UpdateObligationTarget(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	var req updateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.obligationSvc.UpdateTarget(c.Request.Context(), year, month, req.TargetCount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) RecalculateObligation(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}

	view, err := s.obligationSvc.Recalculate(c.Request.Context(), year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}
