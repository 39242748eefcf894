package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/orderflow/internal/service"
)

// registerPublic mounts the token-holder endpoints. The token in the path is
// the only credential; unknown and mismatched tokens both answer 404.
func (h *Handler) registerPublic(public *gin.RouterGroup) {
	public.GET("/price-view/:token", h.viewPriceList)
	public.POST("/price-view/:token/order", h.orderFromPriceView)

	public.GET("/order/:token", h.viewOrderSheet)
	public.PUT("/order/:token/lines", h.updateOrderLines)
	public.POST("/order/:token/submit", h.submitOrderSheet)

	public.GET("/purchase-order/:token", h.viewPurchaseOrder)
	public.POST("/purchase-order/:token", h.submitPurchaseOrder)

	public.GET("/dispatch/:token", h.dispatchForm)
	public.POST("/dispatch/:token", h.submitDispatch)
}

func (h *Handler) viewPriceList(c *gin.Context) {
	list, err := h.svc.PriceLists.ViewPriceList(c.Request.Context(), c.Param("token"))
	respond(h, c, http.StatusOK, list, err)
}

func (h *Handler) orderFromPriceView(c *gin.Context) {
	var req shareRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.PriceLists.ShareByViewToken(c.Request.Context(), c.Param("token"), req.RecipientName)
	respond(h, c, http.StatusCreated, result, err)
}

func (h *Handler) viewOrderSheet(c *gin.Context) {
	sheet, err := h.svc.OrderSheets.ViewByToken(c.Request.Context(), c.Param("token"))
	respond(h, c, http.StatusOK, sheet, err)
}

func (h *Handler) updateOrderLines(c *gin.Context) {
	var req linesRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.OrderSheets.UpdateLinesByToken(c.Request.Context(), c.Param("token"), req.Lines)
	respond(h, c, http.StatusOK, result, err)
}

type submitOrderRequest struct {
	Lines        []service.LineInput `json:"lines"`
	ShipTo       string              `json:"ship_to"`
	CustomerName string              `json:"customer_name"`
}

func (h *Handler) submitOrderSheet(c *gin.Context) {
	var req submitOrderRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.OrderSheets.SubmitByToken(c.Request.Context(), c.Param("token"), service.SubmitInput{
		Lines:        req.Lines,
		ShipTo:       req.ShipTo,
		CustomerName: req.CustomerName,
	})
	respond(h, c, http.StatusOK, result, err)
}

func (h *Handler) viewPurchaseOrder(c *gin.Context) {
	order, err := h.svc.Allocation.ViewBySupplierToken(c.Request.Context(), c.Param("token"))
	respond(h, c, http.StatusOK, order, err)
}

type supplierSubmitRequest struct {
	ExpectedArrivalDate *time.Time                  `json:"expected_arrival_date"`
	Memo                string                      `json:"memo"`
	Lines               []service.SupplierLineInput `json:"lines"`
}

func (h *Handler) submitPurchaseOrder(c *gin.Context) {
	var req supplierSubmitRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.svc.Allocation.SubmitBySupplier(c.Request.Context(), c.Param("token"), service.SupplierSubmitInput{
		ExpectedArrivalDate: req.ExpectedArrivalDate,
		Memo:                req.Memo,
		Lines:               req.Lines,
	})
	respond(h, c, http.StatusOK, order, err)
}

func (h *Handler) dispatchForm(c *gin.Context) {
	form, err := h.svc.Dispatch.DispatchFormByToken(c.Request.Context(), c.Param("token"))
	respond(h, c, http.StatusOK, form, err)
}

func (h *Handler) submitDispatch(c *gin.Context) {
	var details service.ShipmentDetails
	if !bind(c, &details) {
		return
	}
	shipment, err := h.svc.Dispatch.SubmitDispatchByToken(c.Request.Context(), c.Param("token"), details)
	respond(h, c, http.StatusOK, shipment, err)
}
