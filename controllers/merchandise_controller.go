// File: /controllers/merchandise_controller.go
package controllers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"spotrunner-api/middleware"
	"spotrunner-api/services"
	"spotrunner-api/utils"
)

type MerchandiseController struct {
	merchandise *services.MerchandiseService
	redemptions *services.RedemptionService
}

func NewMerchandiseController(merchandise *services.MerchandiseService, redemptions *services.RedemptionService) *MerchandiseController {
	return &MerchandiseController{merchandise: merchandise, redemptions: redemptions}
}

// RedeemRequest keeps the raw quantity so that non-numeric input is reported
// as an invalid quantity rather than a malformed body.
type RedeemRequest struct {
	Quantity services.RawNumber `json:"quantity" form:"quantity"`
}

func (mc *MerchandiseController) GetMerchandise(c *gin.Context) {
	catalog, err := mc.merchandise.Catalog(c.Request.Context(), middleware.Identity(c), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Merchandise retrieved", catalog)
}

func (mc *MerchandiseController) GetMerchandiseItem(c *gin.Context) {
	item, err := mc.merchandise.Detail(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Merchandise retrieved", item)
}

func (mc *MerchandiseController) CreateMerchandise(c *gin.Context) {
	var req services.MerchandiseInput
	if !bind(c, &req) {
		return
	}

	item, err := mc.merchandise.Create(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, "Product created successfully", item)
}

func (mc *MerchandiseController) UpdateMerchandise(c *gin.Context) {
	var req services.MerchandiseInput
	if !bind(c, &req) {
		return
	}

	item, err := mc.merchandise.Update(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Product updated successfully", item)
}

func (mc *MerchandiseController) DeleteMerchandise(c *gin.Context) {
	if err := mc.merchandise.Delete(c.Request.Context(), middleware.Identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Product deleted successfully", nil)
}

func (mc *MerchandiseController) Redeem(c *gin.Context) {
	req := RedeemRequest{Quantity: "1"}
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	quantity, err := strconv.Atoi(string(req.Quantity))
	if err != nil {
		// the service reports it after the existence and role checks
		quantity = 0
	}

	result, err := mc.redemptions.Redeem(c.Request.Context(), middleware.Identity(c), c.Param("id"), quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, fmt.Sprintf("Successfully redeemed %d x %s", quantity, result.ProductName), result)
}

func (mc *MerchandiseController) History(c *gin.Context) {
	history, err := mc.redemptions.History(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Redemption history retrieved", history)
}
