package handler

import (
	"net/http"

	"github.com/gatherly/eventreg/internal/model"
)

// Identity headers set by the authentication gateway in front of this
// service. Authentication itself is a black box here: by the time a request
// arrives these headers carry a verified identity.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	headerMember   = "X-Member-Verified"
)

// actorFromRequest builds the acting identity from the gateway headers.
// An absent role defaults to USER.
func actorFromRequest(r *http.Request) (model.Actor, bool) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		return model.Actor{}, false
	}

	role := model.Role(r.Header.Get(headerUserRole))
	switch role {
	case model.RoleAdmin, model.RoleOrganizer, model.RoleUser:
	default:
		role = model.RoleUser
	}

	return model.Actor{
		UserID:             userID,
		Role:               role,
		MembershipVerified: r.Header.Get(headerMember) == "true",
	}, true
}

// requireActor extracts the actor or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing identity")
	}
	return actor, ok
}
