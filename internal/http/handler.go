package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/service"
)

type Services struct {
	PriceLists  *service.PriceListService
	OrderSheets *service.OrderSheetService
	Allocation  *service.AllocationService
	Dispatch    *service.DispatchService
	Receipts    *service.ReceiptService
	Catalog     *service.CatalogService
}

type Handler struct {
	svc Services
	log zerolog.Logger
}

func NewHandler(svc Services, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	h.registerPublic(router.Group("/public"))

	api := router.Group("/api")
	api.Use(authMiddleware)

	api.GET("/products", h.listProducts)
	api.PUT("/products/:id", h.upsertProduct)
	api.DELETE("/products/:id", h.deleteProduct)
	api.POST("/organizations", h.upsertOrganization)
	api.GET("/organizations/:id", h.getOrganization)
	api.GET("/organizations/:id/purchase-orders", h.listSupplierPurchaseOrders)

	api.GET("/price-lists", h.listPriceLists)
	api.POST("/price-lists", h.createPriceList)
	api.GET("/price-lists/:id", h.getPriceList)
	api.PATCH("/price-lists/:id", h.updatePriceList)
	api.DELETE("/price-lists/:id", h.deletePriceList)
	api.POST("/price-lists/:id/duplicate", h.duplicatePriceList)
	api.POST("/price-lists/:id/publish", h.publishPriceList)
	api.POST("/price-lists/:id/share", h.sharePriceList)
	api.GET("/price-lists/:id/funnel", h.funnel)

	api.POST("/order-sheets", h.createOrderSheet)
	api.GET("/order-sheets/:id", h.getOrderSheet)
	api.POST("/order-sheets/:id/send", h.sendOrderSheet)
	api.PUT("/order-sheets/:id/line", h.updateLine)
	api.PUT("/order-sheets/:id/items", h.replaceItems)
	api.POST("/order-sheets/:id/cut-off", h.extendCutOff)
	api.POST("/order-sheets/:id/confirm", h.confirmOrderSheet)

	api.GET("/sales-orders", h.listSalesOrders)
	api.GET("/sales-orders/:id", h.getSalesOrder)
	api.GET("/sales-orders/:id/allocation", h.allocationStatus)
	api.GET("/sales-orders/:id/allocation/export", h.exportAllocation)

	api.POST("/purchase-orders", h.createPurchaseOrder)
	api.GET("/purchase-orders/:id", h.getPurchaseOrder)
	api.PUT("/purchase-orders/:id/lines", h.setPurchaseOrderLines)
	api.POST("/purchase-orders/:id/allocations", h.allocate)
	api.POST("/purchase-orders/:id/send", h.sendPurchaseOrder)
	api.POST("/templates", h.copyTemplate)

	api.POST("/purchase-orders/:id/receipt", h.startReceipt)
	api.POST("/purchase-orders/:id/receipt/docs", h.checkDocs)
	api.POST("/purchase-orders/:id/receipt/vehicle", h.checkVehicle)
	api.PUT("/purchase-orders/:id/receipt/lines/:product", h.recordLine)
	api.POST("/purchase-orders/:id/receipt/advance", h.advanceReceipt)

	api.POST("/shipments", h.createShipment)
	api.GET("/shipments/:id", h.getShipment)
	api.PATCH("/shipments/:id", h.updateShipment)
	api.POST("/shipments/:id/request-dispatch", h.requestDispatch)
	api.POST("/shipments/:id/dispatch", h.dispatch)
	api.POST("/shipments/:id/outbound/docs", h.confirmDocsMatch)
	api.PUT("/shipments/:id/outbound/checklist/:key", h.setChecklistItem)
	api.POST("/shipments/:id/outbound/signature", h.attachSignature)
	api.POST("/shipments/:id/outbound/advance", h.advanceOutbound)
	api.POST("/shipments/:id/deliver", h.deliver)
	api.GET("/shipments/:id/note", h.dispatchNote)
}

// respond writes result as JSON or maps err.
func respond[T any](h *Handler, c *gin.Context, status int, result T, err error) {
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(status, result)
}

func (h *Handler) listProducts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	products, err := h.svc.Catalog.ListProducts(c.Request.Context(), p, c.Query("category"))
	respond(h, c, http.StatusOK, products, err)
}

func (h *Handler) upsertProduct(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var product model.Product
	if !bind(c, &product) {
		return
	}
	product.ID = c.Param("id")
	saved, err := h.svc.Catalog.UpsertProduct(c.Request.Context(), p, product)
	respond(h, c, http.StatusOK, saved, err)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteProduct(c.Request.Context(), p, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) upsertOrganization(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var org model.Organization
	if !bind(c, &org) {
		return
	}
	saved, err := h.svc.Catalog.UpsertOrganization(c.Request.Context(), p, org)
	respond(h, c, http.StatusOK, saved, err)
}

func (h *Handler) getOrganization(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	org, err := h.svc.Catalog.GetOrganization(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, org, err)
}

func (h *Handler) listSupplierPurchaseOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	orders, err := h.svc.Allocation.ListBySupplier(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, orders, err)
}

type createPriceListRequest struct {
	Title        string     `json:"title" binding:"required"`
	ProductIDs   []string   `json:"product_ids" binding:"required"`
	ValidUntil   *time.Time `json:"valid_until"`
	AdminComment string     `json:"admin_comment"`
}

func (h *Handler) createPriceList(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createPriceListRequest
	if !bind(c, &req) {
		return
	}
	list, err := h.svc.PriceLists.CreatePriceList(c.Request.Context(), service.CreatePriceListInput{
		Principal:    p,
		Title:        req.Title,
		ProductIDs:   req.ProductIDs,
		ValidUntil:   req.ValidUntil,
		AdminComment: req.AdminComment,
	})
	respond(h, c, http.StatusCreated, list, err)
}

func (h *Handler) listPriceLists(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	lists, err := h.svc.PriceLists.ListPriceLists(c.Request.Context(), p)
	respond(h, c, http.StatusOK, lists, err)
}

func (h *Handler) getPriceList(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.PriceLists.GetPriceList(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, list, err)
}

type updatePriceListRequest struct {
	Title        *string                    `json:"title"`
	ValidUntil   *time.Time                 `json:"valid_until"`
	AdminComment *string                    `json:"admin_comment"`
	SupplyPrices map[string]decimal.Decimal `json:"supply_prices"`
}

func (h *Handler) updatePriceList(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePriceListRequest
	if !bind(c, &req) {
		return
	}
	list, err := h.svc.PriceLists.UpdatePriceList(c.Request.Context(), service.UpdatePriceListInput{
		Principal:    p,
		ID:           id,
		Title:        req.Title,
		ValidUntil:   req.ValidUntil,
		AdminComment: req.AdminComment,
		SupplyPrices: req.SupplyPrices,
	})
	respond(h, c, http.StatusOK, list, err)
}

func (h *Handler) deletePriceList(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.PriceLists.DeletePriceList(c.Request.Context(), p, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) duplicatePriceList(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.PriceLists.DuplicatePriceList(c.Request.Context(), p, id)
	respond(h, c, http.StatusCreated, list, err)
}

func (h *Handler) publishPriceList(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.PriceLists.PublishPriceList(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, result, err)
}

type shareRequest struct {
	RecipientName string `json:"recipient_name"`
}

func (h *Handler) sharePriceList(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req shareRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.PriceLists.Share(c.Request.Context(), p, id, req.RecipientName)
	respond(h, c, http.StatusCreated, result, err)
}

func (h *Handler) funnel(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.svc.PriceLists.Funnel(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, stats, err)
}

type createOrderSheetRequest struct {
	CustomerName string              `json:"customer_name" binding:"required"`
	ShipTo       string              `json:"ship_to"`
	CutOffAt     *time.Time          `json:"cut_off_at"`
	Lines        []service.LineInput `json:"lines"`
	CopyFrom     *service.CopySource `json:"copy_from"`
}

func (h *Handler) createOrderSheet(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createOrderSheetRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.OrderSheets.CreateOrderSheet(c.Request.Context(), service.CreateOrderSheetInput{
		Principal:    p,
		CustomerName: req.CustomerName,
		ShipTo:       req.ShipTo,
		CutOffAt:     req.CutOffAt,
		Lines:        req.Lines,
		CopyFrom:     req.CopyFrom,
	})
	respond(h, c, http.StatusCreated, result, err)
}

func (h *Handler) getOrderSheet(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sheet, err := h.svc.OrderSheets.GetOrderSheet(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, sheet, err)
}

func (h *Handler) sendOrderSheet(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.OrderSheets.SendOrderSheet(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, result, err)
}

func (h *Handler) updateLine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var line service.LineInput
	if !bind(c, &line) {
		return
	}
	result, err := h.svc.OrderSheets.UpdateLine(c.Request.Context(), service.UpdateLineInput{Principal: p, ID: id, Line: line})
	respond(h, c, http.StatusOK, result, err)
}

type linesRequest struct {
	Lines []service.LineInput `json:"lines" binding:"required"`
}

func (h *Handler) replaceItems(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req linesRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.OrderSheets.ReplaceItems(c.Request.Context(), service.ReplaceItemsInput{Principal: p, ID: id, Lines: req.Lines})
	respond(h, c, http.StatusOK, result, err)
}

type cutOffRequest struct {
	CutOffAt string `json:"cut_off_at" binding:"required"`
}

func (h *Handler) extendCutOff(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cutOffRequest
	if !bind(c, &req) {
		return
	}
	cutOffAt, err := parseDate(req.CutOffAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cut_off_at"})
		return
	}
	result, err := h.svc.OrderSheets.ExtendCutOff(c.Request.Context(), p, id, cutOffAt)
	respond(h, c, http.StatusOK, result, err)
}

func (h *Handler) confirmOrderSheet(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.OrderSheets.Confirm(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, result, err)
}

func (h *Handler) listSalesOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orders, err := h.svc.OrderSheets.ListSalesOrders(c.Request.Context(), p)
	respond(h, c, http.StatusOK, orders, err)
}

func (h *Handler) getSalesOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.OrderSheets.GetSalesOrder(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, order, err)
}

func (h *Handler) allocationStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.svc.Allocation.AllocationStatus(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, report, err)
}

func (h *Handler) exportAllocation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.Allocation.ExportAllocation(c.Request.Context(), p, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	attachment(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result)
}

type createPurchaseOrderRequest struct {
	SalesOrderID        *uuid.UUID `json:"sales_order_id"`
	SupplierOrgID       uuid.UUID  `json:"supplier_org_id" binding:"required"`
	ExpectedArrivalDate *time.Time `json:"expected_arrival_date"`
	Memo                string     `json:"memo"`
}

func (h *Handler) createPurchaseOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createPurchaseOrderRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.svc.Allocation.CreatePurchaseOrder(c.Request.Context(), service.CreatePurchaseOrderInput{
		Principal:           p,
		SalesOrderID:        req.SalesOrderID,
		SupplierOrgID:       req.SupplierOrgID,
		ExpectedArrivalDate: req.ExpectedArrivalDate,
		Memo:                req.Memo,
	})
	respond(h, c, http.StatusCreated, order, err)
}

func (h *Handler) getPurchaseOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Allocation.GetPurchaseOrder(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, order, err)
}

type purchaseLinesRequest struct {
	Lines []service.PurchaseLineInput `json:"lines" binding:"required"`
}

func (h *Handler) setPurchaseOrderLines(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req purchaseLinesRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.svc.Allocation.SetPurchaseOrderLines(c.Request.Context(), service.SetPurchaseOrderLinesInput{
		Principal: p,
		ID:        id,
		Lines:     req.Lines,
	})
	respond(h, c, http.StatusOK, order, err)
}

type allocateRequest struct {
	SalesOrderItemID uuid.UUID       `json:"sales_order_item_id" binding:"required"`
	SupplierOrgID    uuid.UUID       `json:"supplier_org_id" binding:"required"`
	QtyKg            decimal.Decimal `json:"qty_kg"`
}

func (h *Handler) allocate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req allocateRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Allocation.Allocate(c.Request.Context(), service.AllocateInput{
		Principal:        p,
		PurchaseOrderID:  id,
		SalesOrderItemID: req.SalesOrderItemID,
		SupplierOrgID:    req.SupplierOrgID,
		QtyKg:            req.QtyKg,
	})
	respond(h, c, http.StatusOK, result, err)
}

func (h *Handler) sendPurchaseOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.Allocation.SendPurchaseOrder(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, result, err)
}

func (h *Handler) copyTemplate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var source service.CopySource
	if !bind(c, &source) {
		return
	}
	result, err := h.svc.Allocation.CopyFromPastOrder(c.Request.Context(), p, source)
	respond(h, c, http.StatusOK, result, err)
}

func (h *Handler) startReceipt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Receipts.StartReceipt(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, order, err)
}

type checkDocsRequest struct {
	Invoice     bool `json:"invoice"`
	Certificate bool `json:"certificate"`
}

func (h *Handler) checkDocs(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req checkDocsRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.svc.Receipts.CheckDocs(c.Request.Context(), service.CheckDocsInput{
		Principal:   p,
		ID:          id,
		Invoice:     req.Invoice,
		Certificate: req.Certificate,
	})
	respond(h, c, http.StatusOK, order, err)
}

type checkedRequest struct {
	Checked bool `json:"checked"`
}

func (h *Handler) checkVehicle(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req checkedRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.svc.Receipts.CheckVehicle(c.Request.Context(), p, id, req.Checked)
	respond(h, c, http.StatusOK, order, err)
}

type recordLineRequest struct {
	ActualKg decimal.Decimal         `json:"actual_kg"`
	BoxCount int                     `json:"box_count"`
	Status   model.ReceiptLineStatus `json:"status" binding:"required"`
	Note     string                  `json:"note"`
}

func (h *Handler) recordLine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req recordLineRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.svc.Receipts.RecordLine(c.Request.Context(), service.RecordLineInput{
		Principal:       p,
		PurchaseOrderID: id,
		ProductID:       c.Param("product"),
		ActualKg:        req.ActualKg,
		BoxCount:        req.BoxCount,
		Status:          req.Status,
		Note:            req.Note,
	})
	respond(h, c, http.StatusOK, order, err)
}

func (h *Handler) advanceReceipt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Receipts.AdvanceReceipt(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, order, err)
}

type createShipmentRequest struct {
	SalesOrderID uuid.UUID               `json:"sales_order_id" binding:"required"`
	CarrierOrgID *uuid.UUID              `json:"carrier_org_id"`
	Details      service.ShipmentDetails `json:"details"`
}

func (h *Handler) createShipment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createShipmentRequest
	if !bind(c, &req) {
		return
	}
	shipment, err := h.svc.Dispatch.CreateShipment(c.Request.Context(), service.CreateShipmentInput{
		Principal:    p,
		SalesOrderID: req.SalesOrderID,
		CarrierOrgID: req.CarrierOrgID,
		Details:      req.Details,
	})
	respond(h, c, http.StatusCreated, shipment, err)
}

func (h *Handler) getShipment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	shipment, err := h.svc.Dispatch.GetShipment(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, shipment, err)
}

func (h *Handler) updateShipment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var details service.ShipmentDetails
	if !bind(c, &details) {
		return
	}
	shipment, err := h.svc.Dispatch.UpdateShipmentDetails(c.Request.Context(), p, id, details)
	respond(h, c, http.StatusOK, shipment, err)
}

type requestDispatchRequest struct {
	CarrierOrgID uuid.UUID `json:"carrier_org_id" binding:"required"`
}

func (h *Handler) requestDispatch(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req requestDispatchRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Dispatch.RequestDispatch(c.Request.Context(), p, id, req.CarrierOrgID)
	respond(h, c, http.StatusOK, result, err)
}

func (h *Handler) dispatch(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var details service.ShipmentDetails
	if !bind(c, &details) {
		return
	}
	shipment, err := h.svc.Dispatch.Dispatch(c.Request.Context(), p, id, details)
	respond(h, c, http.StatusOK, shipment, err)
}

func (h *Handler) confirmDocsMatch(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	shipment, err := h.svc.Dispatch.ConfirmDocsMatch(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, shipment, err)
}

func (h *Handler) setChecklistItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req checkedRequest
	if !bind(c, &req) {
		return
	}
	shipment, err := h.svc.Dispatch.SetChecklistItem(c.Request.Context(), p, id, c.Param("key"), req.Checked)
	respond(h, c, http.StatusOK, shipment, err)
}

type signatureRequest struct {
	Ref string `json:"ref" binding:"required"`
}

func (h *Handler) attachSignature(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req signatureRequest
	if !bind(c, &req) {
		return
	}
	shipment, err := h.svc.Dispatch.AttachSignature(c.Request.Context(), p, id, req.Ref)
	respond(h, c, http.StatusOK, shipment, err)
}

func (h *Handler) advanceOutbound(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	shipment, err := h.svc.Dispatch.AdvanceOutbound(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, shipment, err)
}

func (h *Handler) deliver(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	shipment, err := h.svc.Dispatch.Deliver(c.Request.Context(), p, id)
	respond(h, c, http.StatusOK, shipment, err)
}

func (h *Handler) dispatchNote(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.Dispatch.DispatchNote(c.Request.Context(), p, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	attachment(c, "application/pdf", result)
}
