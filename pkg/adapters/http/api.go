package http

import (
	"fmt"
	"net/http"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// MenuParams are the query parameters of GET /v1/menu.
type MenuParams struct {
	Category *string `form:"category,omitempty" json:"category,omitempty"`
	Profile  *string `form:"profile,omitempty" json:"profile,omitempty"`
	Intent   *string `form:"intent,omitempty" json:"intent,omitempty"`
	Guests   *int    `form:"guests,omitempty" json:"guests,omitempty"`
}

// MenuResponse is the body of GET /v1/menu.
type MenuResponse struct {
	Menu    []domain.MenuEntry `json:"menu"`
	NoMatch bool               `json:"no_match,omitempty"`
	Notice  string             `json:"notice,omitempty"`
}

// SubscribeSessionParams are the query parameters of GET /v1/sessions/{id}/events.
type SubscribeSessionParams struct {
	Watch *string `form:"watch,omitempty" json:"watch,omitempty"`
}

// SessionTurnRequest is the body of POST /v1/sessions/{id}/turn.
type SessionTurnRequest struct {
	Message string        `json:"message"`
	Source  domain.Source `json:"source,omitempty"`
}

// SessionTurnResponse is the body returned by POST /v1/sessions/{id}/turn.
type SessionTurnResponse struct {
	SessionID string               `json:"session_id"`
	Response  *domain.TurnResponse `json:"response"`
}

// ServerInterface lists one method per operation of openapi.yaml.
type ServerInterface interface {
	PostTurn(w http.ResponseWriter, r *http.Request)
	PostFollowUp(w http.ResponseWriter, r *http.Request)
	GetMenu(w http.ResponseWriter, r *http.Request, params MenuParams)
	GetSession(w http.ResponseWriter, r *http.Request, id string)
	DeleteSession(w http.ResponseWriter, r *http.Request, id string)
	PostSessionTurn(w http.ResponseWriter, r *http.Request, id string)
	SubscribeSession(w http.ResponseWriter, r *http.Request, id string, params SubscribeSessionParams)
	SubscribeEvents(w http.ResponseWriter, r *http.Request)
	GetHealth(w http.ResponseWriter, r *http.Request)
	GetInfo(w http.ResponseWriter, r *http.Request)
}

// HandlerFromMux mounts every operation of si on r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	r.Post("/v1/turn", si.PostTurn)
	r.Post("/v1/followup", si.PostFollowUp)
	r.Get("/v1/menu", func(w http.ResponseWriter, r *http.Request) {
		var params MenuParams
		q := r.URL.Query()
		for name, dest := range map[string]any{
			"category": &params.Category,
			"profile":  &params.Profile,
			"intent":   &params.Intent,
			"guests":   &params.Guests,
		} {
			if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
				http.Error(w, fmt.Sprintf("Invalid format for parameter %s: %v", name, err), http.StatusBadRequest)
				return
			}
		}
		si.GetMenu(w, r, params)
	})
	r.Route("/v1/sessions/{id}", func(r chi.Router) {
		r.Get("/", withSessionID(si.GetSession))
		r.Delete("/", withSessionID(si.DeleteSession))
		r.Post("/turn", withSessionID(si.PostSessionTurn))
		r.Get("/events", withSessionID(func(w http.ResponseWriter, r *http.Request, id string) {
			var params SubscribeSessionParams
			if err := runtime.BindQueryParameter("form", true, false, "watch", r.URL.Query(), &params.Watch); err != nil {
				http.Error(w, fmt.Sprintf("Invalid format for parameter watch: %v", err), http.StatusBadRequest)
				return
			}
			si.SubscribeSession(w, r, id, params)
		}))
	})
	r.Get("/v1/events", si.SubscribeEvents)
	r.Get("/health", si.GetHealth)
	r.Get("/info", si.GetInfo)
	return r
}

func withSessionID(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid format for parameter id: %v", err), http.StatusBadRequest)
			return
		}
		next(w, r, id)
	}
}
