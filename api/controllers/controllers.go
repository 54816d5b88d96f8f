package controllers

import (
	"net/http"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/pkg/actor"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
)

// requireActor pulls the authenticated actor off the request context. The
// auth middleware guarantees it on protected routes; a miss here means the
// route was wired without it.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (actor.Actor, bool) {
	act, ok := actor.FromContext(r.Context())
	if !ok || act.IsZero() {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return actor.Actor{}, false
	}
	return act, true
}
