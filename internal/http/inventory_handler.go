package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grocyhq/grocy-pos/internal/apperr"
	"github.com/grocyhq/grocy-pos/internal/service"
)

// maxUploadBytes bounds CSV uploads and raw saves.
const maxUploadBytes = 10 << 20 // 10 MB

type inventoryHandler struct {
	svc *Service

	inventorySvc service.InventoryService
}

func newInventoryHandler(svc *Service, inventorySvc service.InventoryService) *inventoryHandler {
	return &inventoryHandler{
		svc:          svc,
		inventorySvc: inventorySvc,
	}
}

func (h *inventoryHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventorySvc.List(r.Context())
	if err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, products)
}

type addProductRequest struct {
	Barcode     string  `json:"barcode" validate:"omitempty,barcode"`
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	Description string  `json:"description"`
}

func (h *inventoryHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	product, err := h.inventorySvc.Add(r.Context(), service.AddProductParams{
		Barcode:     req.Barcode,
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Description: req.Description,
	})
	if err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	h.svc.writeJSON(w, r, http.StatusCreated, product)
}

type salesDataRequest struct {
	QuantitySold int       `json:"quantitySold" validate:"gte=0"`
	TotalPrice   float64   `json:"totalPrice" validate:"gte=0"`
	SaleDate     time.Time `json:"saleDate"`
}

type updateProductRequest struct {
	Barcode     *string  `json:"barcode" validate:"omitempty,barcode"`
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Category    *string  `json:"category" validate:"omitempty,min=1"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Quantity    *int     `json:"quantity"`
	Description *string  `json:"description"`

	SalesData *salesDataRequest `json:"salesData"`
}

func (h *inventoryHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateProductRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	params := service.UpdateProductParams{
		Barcode:     req.Barcode,
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Description: req.Description,
	}
	if req.SalesData != nil {
		params.Sale = &service.SaleData{
			QuantitySold: req.SalesData.QuantitySold,
			TotalPrice:   req.SalesData.TotalPrice,
			SaleDate:     req.SalesData.SaleDate,
		}
	}

	product, err := h.inventorySvc.Update(r.Context(), id, params)
	if err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, product)
}

func (h *inventoryHandler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.svc.writeError(w, r, apperr.ValidationErr.WrapParent(fmt.Errorf("parse multipart form: %w", err)))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.svc.writeError(w, r, apperr.ValidationErr.WrapParent(fmt.Errorf("missing file field: %w", err)))
		return
	}
	defer file.Close()

	result, err := h.inventorySvc.Import(r.Context(), file)
	if err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, result)
}

func (h *inventoryHandler) saveRaw(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		h.svc.writeError(w, r, apperr.ValidationErr.WrapParent(fmt.Errorf("read request body: %w", err)))
		return
	}

	if err := h.inventorySvc.SaveRaw(r.Context(), data); err != nil {
		h.svc.writeError(w, r, err)
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}
