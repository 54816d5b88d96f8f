package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/finance"
	"github.com/souqline/souqline-backend/pkg/logger"
)

func SubmitFinancePayment(svc finance.Service, logg *logger.Logger) http.HandlerFunc {
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

		var in finance.SubmitInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.SubmitPayment(r.Context(), act, branchID, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

type decidePaymentRequest struct {
	Approve bool    `json:"approve"`
	Message *string `json:"message" validate:"omitempty,max=500"`
}

// DecideFinancePayment approves or rejects a pending payment. Decisions are
// one-way; replays surface a state conflict.
func DecideFinancePayment(svc finance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		paymentID, err := validators.ParsePathUUID(chi.URLParam(r, "paymentID"), "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req decidePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Decide(r.Context(), act, paymentID, req.Approve, req.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// GetFinanceSummary recomputes the branch settlement position from orders
// and approved payments.
func GetFinanceSummary(svc finance.Service, logg *logger.Logger) http.HandlerFunc {
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

		summary, err := svc.GetSummary(r.Context(), act, branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func ListBranchPayments(svc finance.Service, logg *logger.Logger) http.HandlerFunc {
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

		items, err := svc.ListForBranch(r.Context(), act, branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ListPendingPayments(svc finance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		items, err := svc.ListPending(r.Context(), act)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
