package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) DashboardSummary(c *gin.Context) {
	summary, err := s.dashboardSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) DashboardAlerts(c *gin.Context) {
	alerts, err := s.dashboardSvc.Alerts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

func (s *Server) DashboardCalendar(c *gin.Context) {
	year, month, ok := s.yearMonth(c)
	if !ok {
		return
	}

	cal, err := s.dashboardSvc.Calendar(c.Request.Context(), year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cal})
}

// DashboardStatistics returns monthly statistics when month is given, otherwise yearly.
func (s *Server) DashboardStatistics(c *gin.Context) {
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}
	month, ok := queryInt(c, "month")
	if !ok {
		return
	}
	y := s.clock.Now().Year()
	if year != nil {
		y = *year
	}

	stats, err := s.dashboardSvc.Statistics(c.Request.Context(), y, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
