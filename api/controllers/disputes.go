package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/disputes"
	"github.com/souqline/souqline-backend/pkg/logger"
)

func OpenDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var in disputes.OpenInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Open(r.Context(), act, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dispute)
	}
}

type resolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required,min=3,max=2000"`
}

// ResolveDispute writes the resolution once; a concurrent second resolution
// returns the stored outcome unchanged.
func ResolveDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeID"), "disputeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Resolve(r.Context(), act, disputeID, req.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

func CloseDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeID"), "disputeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Close(r.Context(), act, disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

func GetDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeID"), "disputeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.GetByID(r.Context(), act, disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

func ListMyDisputes(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		items, err := svc.ListForBuyer(r.Context(), act)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ListBranchDisputes(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
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
