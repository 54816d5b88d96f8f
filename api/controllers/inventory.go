package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/inventory"
	"github.com/souqline/souqline-backend/pkg/logger"
)

type adjustStockRequest struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId"`
	Delta     int        `json:"delta" validate:"required"`
	Reason    string     `json:"reason" validate:"required,min=3,max=200"`
}

// AdjustStock applies a manual signed stock delta with an audit reason.
func AdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		branchID, err := validators.ParsePathUUID(chi.URLParam(r, "branchID"), "branchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Adjust(r.Context(), act, branchID, req.ProductID, req.VariantID, req.Delta, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "adjusted"})
	}
}

func ListInventoryLogs(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		branchID, err := validators.ParsePathUUID(chi.URLParam(r, "branchID"), "branchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var productID *uuid.UUID
		if raw := strings.TrimSpace(r.URL.Query().Get("productId")); raw != "" {
			id, err := validators.ParsePathUUID(raw, "productId")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			productID = &id
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logs, err := svc.ListLogs(r.Context(), act, branchID, productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, logs)
	}
}
