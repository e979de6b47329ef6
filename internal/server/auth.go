package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
)

type registerRequest struct {
	Username          string         `json:"username"`
	Email             string         `json:"email"`
	Password          string         `json:"password"`
	FullName          string         `json:"full_name"`
	OrdinationDate    *Date          `json:"ordination_date"`
	CurrentAssignment *string        `json:"current_assignment"`
	Diocese           *string        `json:"diocese"`
	Province          *string        `json:"province"`
	Phone             *string        `json:"phone"`
	Address           *string        `json:"address"`
	Preferences       map[string]any `json:"preferences"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.authsvc.Register(c.Request.Context(), authdomain.RegisterRequest{
		Username:          strings.TrimSpace(req.Username),
		Email:             strings.TrimSpace(req.Email),
		Password:          req.Password,
		FullName:          strings.TrimSpace(req.FullName),
		OrdinationDate:    req.OrdinationDate.Ptr(),
		CurrentAssignment: req.CurrentAssignment,
		Diocese:           req.Diocese,
		Province:          req.Province,
		Phone:             req.Phone,
		Address:           req.Address,
		Preferences:       req.Preferences,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Identifier: user.Username,
		Password:   req.Password,
		UserAgent:  c.Request.UserAgent(),
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registration successful", "data": result})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		AbortWithError(c, newValidationError("username", "required", "username and password are required"))
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Identifier: strings.TrimSpace(req.Username),
		Password:   req.Password,
		UserAgent:  c.Request.UserAgent(),
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "login successful", "data": result})
}

func (s *Server) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		AbortWithError(c, newValidationError("refresh_token", "required", "refresh_token is required"))
		return
	}

	tokens, err := s.authsvc.Refresh(c.Request.Context(), authdomain.RefreshRequest{
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		UserAgent:    c.Request.UserAgent(),
		IPAddress:    c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokens})
}

// Logout revokes the refresh token in the body. Unknown tokens are not an error.
func (s *Server) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		AbortWithError(c, newValidationError("refresh_token", "required", "refresh_token is required"))
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), strings.TrimSpace(req.RefreshToken)); err != nil &&
		!errors.Is(err, authdomain.ErrInvalidToken) {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

func (s *Server) VerifyToken(c *gin.Context) {
	var req verifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		AbortWithError(c, newValidationError("token", "required", "token is required"))
		return
	}

	principal, err := s.authsvc.Authenticate(c.Request.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		if isUnauthorizedError(err) {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": codeOf(err)})
			return
		}
		AbortWithError(c, err)
		return
	}

	ctx := priestcontext.WithPriestID(c.Request.Context(), principal.UserID)
	user, err := s.authsvc.CurrentUser(priestcontext.WithRole(ctx, string(principal.Role)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "user": user})
}

func (s *Server) Me(c *gin.Context) {
	user, err := s.authsvc.CurrentUser(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (s *Server) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}
