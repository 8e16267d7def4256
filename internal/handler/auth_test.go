package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatherly/eventreg/internal/model"
)

func TestActorFromRequest(t *testing.T) {
	newReq := func(headers map[string]string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range headers {
			r.Header.Set(k, v)
		}
		return r
	}

	t.Run("full identity", func(t *testing.T) {
		actor, ok := actorFromRequest(newReq(map[string]string{
			headerUserID:   "user-1",
			headerUserRole: "ADMIN",
			headerMember:   "true",
		}))
		if !ok {
			t.Fatal("expected actor")
		}
		if actor.UserID != "user-1" || actor.Role != model.RoleAdmin || !actor.MembershipVerified {
			t.Errorf("actor = %+v", actor)
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		if _, ok := actorFromRequest(newReq(nil)); ok {
			t.Error("expected no actor without a user id")
		}
	})

	t.Run("unknown role defaults to user", func(t *testing.T) {
		actor, ok := actorFromRequest(newReq(map[string]string{
			headerUserID:   "user-1",
			headerUserRole: "SUPERUSER",
		}))
		if !ok {
			t.Fatal("expected actor")
		}
		if actor.Role != model.RoleUser {
			t.Errorf("role = %s, want USER", actor.Role)
		}
	})

	t.Run("requireActor writes 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		if _, ok := requireActor(rec, newReq(nil)); ok {
			t.Fatal("expected failure")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
