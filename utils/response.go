// File: /utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Response is the envelope every API reply uses.
type Response struct {
	Success bool        `json:"success"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type Page struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
}

func SendError(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Status:  StatusError,
		Message: message,
	})
}

func SendValidationError(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, message)
}

func SendSuccess(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

func SendCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// SendWarning reports a request that was valid but changed nothing, such as
// registering twice.
func SendWarning(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: false,
		Status:  StatusWarning,
		Message: message,
		Data:    data,
	})
}

func SendPaginated(c *gin.Context, message string, items interface{}, page, limit int, total int64) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	SendSuccess(c, message, Page{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}
