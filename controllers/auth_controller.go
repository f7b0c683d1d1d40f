// File: /controllers/auth_controller.go
package controllers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"spotrunner-api/middleware"
	"spotrunner-api/models"
	"spotrunner-api/services"
	"spotrunner-api/utils"
)

type AuthController struct {
	accounts  *services.AccountService
	jwtSecret string
	jwtTTL    time.Duration
}

func NewAuthController(accounts *services.AccountService, jwtSecret string, jwtTTL time.Duration) *AuthController {
	return &AuthController{
		accounts:  accounts,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
	}
}

type AuthResponse struct {
	Token   string      `json:"token"`
	User    models.User `json:"user"`
	Profile interface{} `json:"profile"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" form:"password" binding:"required"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bind(c, &req) {
		return
	}
	if !utils.IsValidPassword(req.Password) {
		utils.SendValidationError(c, "Password must be at least 6 characters and mix letters, numbers or symbols")
		return
	}

	identity, err := ac.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := ac.authResponse(identity)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, "Registration successful", resp)
}

func (ac *AuthController) Login(c *gin.Context) {
	var req services.LoginInput
	if !bind(c, &req) {
		return
	}

	identity, err := ac.accounts.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := ac.authResponse(identity)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Login successful", resp)
}

func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.accounts.Logout(c.Request.Context(), middleware.Identity(c)); err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Successfully logged out", nil)
}

func (ac *AuthController) DeleteAccount(c *gin.Context) {
	var req DeleteAccountRequest
	if !bind(c, &req) {
		return
	}

	if err := ac.accounts.DeleteAccount(c.Request.Context(), middleware.Identity(c), req.Password); err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Your account has been deleted", nil)
}

func (ac *AuthController) authResponse(identity *models.Identity) (*AuthResponse, error) {
	token, err := utils.GenerateToken(ac.jwtSecret, ac.jwtTTL, identity.User)
	if err != nil {
		slog.Error("failed to generate token", "user_id", identity.User.ID, "error", err)
		return nil, err
	}

	resp := &AuthResponse{Token: token, User: identity.User}
	if runner, ok := identity.AsRunner(); ok {
		resp.Profile = runner
	} else if organizer, ok := identity.AsOrganizer(); ok {
		resp.Profile = organizer
	}
	return resp, nil
}
