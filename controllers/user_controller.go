// File: /controllers/user_controller.go
package controllers

import (
	"github.com/gin-gonic/gin"
	"spotrunner-api/middleware"
	"spotrunner-api/services"
	"spotrunner-api/utils"
)

type UserController struct {
	profiles *services.ProfileService
}

func NewUserController(profiles *services.ProfileService) *UserController {
	return &UserController{profiles: profiles}
}

func (uc *UserController) GetRunnerProfile(c *gin.Context) {
	dashboard, err := uc.profiles.RunnerDashboard(c.Request.Context(), middleware.Identity(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Profile retrieved", dashboard)
}

func (uc *UserController) UpdateRunnerProfile(c *gin.Context) {
	var req services.RunnerProfileInput
	if !bind(c, &req) {
		return
	}

	profile, err := uc.profiles.UpdateRunner(c.Request.Context(), middleware.Identity(c), c.Param("username"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Profile updated successfully", profile)
}

func (uc *UserController) GetOrganizer(c *gin.Context) {
	page, err := uc.profiles.OrganizerPage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Organizer retrieved", page)
}

func (uc *UserController) OrganizerDashboard(c *gin.Context) {
	dashboard, err := uc.profiles.OrganizerDashboard(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Dashboard retrieved", dashboard)
}

func (uc *UserController) UpdateOrganizerProfile(c *gin.Context) {
	var req services.OrganizerProfileInput
	if !bind(c, &req) {
		return
	}

	profile, err := uc.profiles.UpdateOrganizer(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Profile updated successfully", profile)
}
