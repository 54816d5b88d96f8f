package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/branches"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
)

func GetBranch(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := validators.ParsePathUUID(chi.URLParam(r, "branchID"), "branchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branch, err := svc.GetByID(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, branch)
	}
}

func ListBranches(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *enums.BranchStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			candidate := enums.BranchStatus(raw)
			if !candidate.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown branch status"))
				return
			}
			status = &candidate
		}

		items, err := svc.List(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

type setBranchStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func SetBranchStatus(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req setBranchStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.BranchStatus(strings.TrimSpace(req.Status))
		if !status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown branch status"))
			return
		}

		branch, err := svc.SetStatus(r.Context(), act, branchID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, branch)
	}
}
