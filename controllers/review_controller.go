// File: /controllers/review_controller.go
package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"spotrunner-api/middleware"
	"spotrunner-api/services"
	"spotrunner-api/utils"
)

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

func (rc *ReviewController) CreateReview(c *gin.Context) {
	var req services.ReviewInput
	if !bind(c, &req) {
		return
	}
	if req.EventID == "" {
		utils.SendValidationError(c, "event_id is required")
		return
	}

	review, err := rc.reviews.Create(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, "Review posted successfully", review)
}

func (rc *ReviewController) UpdateReview(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	var req services.ReviewInput
	if !bind(c, &req) {
		return
	}

	review, err := rc.reviews.Update(c.Request.Context(), middleware.Identity(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Review updated successfully", review)
}

func (rc *ReviewController) DeleteReview(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}

	if err := rc.reviews.Delete(c.Request.Context(), middleware.Identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Review deleted successfully", nil)
}

func reviewID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, services.ErrReviewNotFound)
		return 0, false
	}
	return uint(id), true
}
