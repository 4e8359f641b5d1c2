package http

import (
	"net/http"
	"time"

	"github.com/grocyhq/grocy-pos/internal/model"
	"github.com/grocyhq/grocy-pos/internal/service"
)

type saleHandler struct {
	svc *Service

	inventorySvc  service.InventoryService
	saleProcessor service.SaleProcessor
}

func newSaleHandler(svc *Service, inventorySvc service.InventoryService, saleProcessor service.SaleProcessor) *saleHandler {
	return &saleHandler{
		svc:           svc,
		inventorySvc:  inventorySvc,
		saleProcessor: saleProcessor,
	}
}

type saleItemRequest struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Barcode     string  `json:"barcode"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
}

type processSaleRequest struct {
	Items    []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	Total    float64           `json:"total"`
	SaleDate time.Time         `json:"saleDate"`
}

func (h *saleHandler) processSale(w http.ResponseWriter, r *http.Request) {
	var req processSaleRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	items := make([]service.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.SaleItem{
			ProductID: item.ID,
			Name:      item.Name,
			Category:  item.Category,
			Barcode:   item.Barcode,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	result, err := h.saleProcessor.ProcessSale(r.Context(), service.ProcessSaleParams{
		Items:    items,
		SaleDate: req.SaleDate,
	})
	if err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, result)
}

type searchProductRequest struct {
	Barcode    string `json:"barcode" validate:"required_without=SearchTerm"`
	SearchTerm string `json:"searchTerm" validate:"required_without=Barcode"`
}

type searchProductResponse struct {
	Product *model.Product `json:"product"`
}

func (h *saleHandler) searchProduct(w http.ResponseWriter, r *http.Request) {
	var req searchProductRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	var (
		product *model.Product
		err     error
	)
	if req.Barcode != "" {
		product, err = h.inventorySvc.SearchByBarcode(r.Context(), req.Barcode)
	} else {
		product, err = h.inventorySvc.SearchByTerm(r.Context(), req.SearchTerm)
	}
	if err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, searchProductResponse{Product: product})
}
