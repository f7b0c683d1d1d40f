// File: /controllers/event_controller.go
package controllers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"spotrunner-api/middleware"
	"spotrunner-api/models"
	"spotrunner-api/repositories"
	"spotrunner-api/services"
	"spotrunner-api/utils"
)

type EventController struct {
	events      *services.EventService
	attendances *services.AttendanceService
	reviews     *services.ReviewService
}

func NewEventController(events *services.EventService, attendances *services.AttendanceService, reviews *services.ReviewService) *EventController {
	return &EventController{events: events, attendances: attendances, reviews: reviews}
}

type ParticipateRequest struct {
	Category string `json:"category" form:"category"`
}

func (ec *EventController) GetEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	status := models.EventStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		utils.SendValidationError(c, fmt.Sprintf("Unknown status %q", status))
		return
	}

	filter := repositories.EventFilter{
		Category:    c.Query("category"),
		Location:    c.Query("location"),
		Status:      status,
		OrganizerID: c.Query("organizer"),
		Search:      c.Query("search"),
		Offset:      (page - 1) * limit,
		Limit:       limit,
	}

	events, total, err := ec.events.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendPaginated(c, "Events retrieved", events, page, limit, total)
}

func (ec *EventController) GetEvent(c *gin.Context) {
	event, err := ec.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Event retrieved", event)
}

func (ec *EventController) CreateEvent(c *gin.Context) {
	var req services.EventInput
	if !bind(c, &req) {
		return
	}

	event, err := ec.events.Create(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, "Event created successfully", event)
}

func (ec *EventController) UpdateEvent(c *gin.Context) {
	var req services.EventInput
	if !bind(c, &req) {
		return
	}

	event, err := ec.events.Update(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Event updated successfully", event)
}

func (ec *EventController) DeleteEvent(c *gin.Context) {
	if err := ec.events.Delete(c.Request.Context(), middleware.Identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Event deleted successfully", nil)
}

func (ec *EventController) CancelEvent(c *gin.Context) {
	event, err := ec.events.Cancel(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, fmt.Sprintf("%s has been canceled", event.Name), event)
}

func (ec *EventController) CompleteEvent(c *gin.Context) {
	result, err := ec.attendances.CompleteEvent(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, fmt.Sprintf("Event completed, %d runners finished", result.Finished), result)
}

func (ec *EventController) GetParticipants(c *gin.Context) {
	participants, err := ec.events.Participants(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Participants retrieved", participants)
}

func (ec *EventController) GetEventReviews(c *gin.Context) {
	if _, err := ec.events.Get(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	reviews, err := ec.reviews.ListForEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Reviews retrieved", reviews)
}

// Participate registers the runner named in the path for the event.
func (ec *EventController) Participate(c *gin.Context) {
	var req ParticipateRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	result, err := ec.attendances.Participate(c.Request.Context(), middleware.Identity(c),
		c.Param("username"), c.Param("id"), req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	ec.sendAttendance(c, result)
}

func (ec *EventController) CancelAttendance(c *gin.Context) {
	result, err := ec.attendances.CancelAttendance(c.Request.Context(), middleware.Identity(c),
		c.Param("username"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ec.sendAttendance(c, result)
}

func (ec *EventController) sendAttendance(c *gin.Context, result *services.AttendanceResult) {
	if result.Outcome.Warning() {
		utils.SendWarning(c, result.Message(), result)
		return
	}
	utils.SendSuccess(c, result.Message(), result)
}
