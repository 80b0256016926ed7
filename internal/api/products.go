package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog-sync-service/internal/catalog"
	"catalog-sync-service/internal/logger"
)

var errProductExists = errors.New("product already exists")

type productRequest struct {
	Code            string  `json:"code"`
	Description     string  `json:"description"`
	ManufactureDate string  `json:"manufacture_date"`
	Cost            float64 `json:"cost"`
	Stock           int     `json:"stock"`
	ImageURI        string  `json:"image_uri"`
}

// product builds an unsynced live product from the request.
func (req productRequest) product() *catalog.Product {
	return &catalog.Product{
		Code:            strings.TrimSpace(req.Code),
		Description:     strings.TrimSpace(req.Description),
		ManufactureDate: req.ManufactureDate,
		Cost:            req.Cost,
		Stock:           req.Stock,
		ImageURI:        req.ImageURI,
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", catalog.ErrInvalid)
	}
	return nil
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []*catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.liveProduct(r, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := req.product()
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	existing, err := h.products.Get(r.Context(), p.Code)
	switch {
	case err == nil && !existing.Deleted:
		writeError(w, r, fmt.Errorf("%w: %s", errProductExists, p.Code))
		return
	case err != nil && !errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, err)
		return
	}

	if err := h.products.Insert(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}

	logger.Log.Info("Product created", zap.String("code", p.Code))
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Code = code

	if _, err := h.liveProduct(r, code); err != nil {
		writeError(w, r, err)
		return
	}

	p := req.product()
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}

	logger.Log.Info("Product updated", zap.String("code", p.Code))
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct flags the product; the next sync run removes it remotely and
// then purges it locally.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if _, err := h.liveProduct(r, code); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.products.MarkDeleted(r.Context(), code); err != nil {
		writeError(w, r, err)
		return
	}

	logger.Log.Info("Product marked deleted", zap.String("code", code))
	w.WriteHeader(http.StatusNoContent)
}

// liveProduct treats tombstones as missing.
func (h *Handler) liveProduct(r *http.Request, code string) (*catalog.Product, error) {
	p, err := h.products.Get(r.Context(), code)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, fmt.Errorf("product %s: %w", code, catalog.ErrNotFound)
	}
	return p, nil
}
