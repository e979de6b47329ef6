package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
)

type updateUserRequest struct {
	FullName          *string        `json:"full_name"`
	Email             *string        `json:"email"`
	OrdinationDate    *Date          `json:"ordination_date"`
	CurrentAssignment *string        `json:"current_assignment"`
	Diocese           *string        `json:"diocese"`
	Province          *string        `json:"province"`
	Phone             *string        `json:"phone"`
	Address           *string        `json:"address"`
	ProfileImageURL   *string        `json:"profile_image_url"`
	Preferences       map[string]any `json:"preferences"`
}

func (s *Server) ListUsers(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	isActive, ok := queryBool(c, "is_active")
	if !ok {
		return
	}

	resp, err := s.authsvc.ListUsers(c.Request.Context(), authdomain.ListRequest{IsActive: isActive, Page: page})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SearchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		AbortWithError(c, newValidationError("q", "required", "search query is required"))
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := s.authsvc.SearchUsers(c.Request.Context(), authdomain.SearchRequest{Query: query, Page: page})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (s *Server) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.authsvc.UpdateProfile(c.Request.Context(), id, authdomain.ProfileUpdate{
		FullName:          req.FullName,
		Email:             req.Email,
		OrdinationDate:    req.OrdinationDate.Ptr(),
		CurrentAssignment: req.CurrentAssignment,
		Diocese:           req.Diocese,
		Province:          req.Province,
		Phone:             req.Phone,
		Address:           req.Address,
		ProfileImageURL:   req.ProfileImageURL,
		Preferences:       req.Preferences,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (s *Server) DeactivateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := s.authsvc.DeactivateUser(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}
