package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/coupons"
	"github.com/souqline/souqline-backend/pkg/logger"
)

type validateCouponRequest struct {
	BranchID uuid.UUID       `json:"branchId" validate:"required"`
	Code     string          `json:"code" validate:"required"`
	Subtotal decimal.Decimal `json:"subtotal" validate:"required"`
}

type couponQuoteResponse struct {
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// ValidateCoupon dry-runs the redemption checks for the buyer's cart. It
// never consumes a usage.
func ValidateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req validateCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Validate(r.Context(), act.UserID, req.BranchID, req.Code, req.Subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, couponQuoteResponse{
			Code:           quote.Coupon.Code,
			DiscountAmount: quote.DiscountAmount,
		})
	}
}

func CreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
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

		var in coupons.CreateInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), act, branchID, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func UpdateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
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
		couponID, err := validators.ParsePathUUID(chi.URLParam(r, "couponID"), "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var in coupons.UpdateInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), act, branchID, couponID, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func DeleteCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
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
		couponID, err := validators.ParsePathUUID(chi.URLParam(r, "couponID"), "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), act, branchID, couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ListBranchCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
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

		items, err := svc.ListByBranch(r.Context(), act, branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
