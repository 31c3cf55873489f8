package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists the gateway operations in api/openapi.yaml.
type ServerInterface interface {
	// (POST /generate-code)
	GenerateCode(w http.ResponseWriter, r *http.Request)
	// (POST /save-log)
	SaveLog(w http.ResponseWriter, r *http.Request)
	// (GET /get-logs)
	GetLogs(w http.ResponseWriter, r *http.Request)
	// (DELETE /delete-log/{user_id}/{chat_id})
	DeleteLog(w http.ResponseWriter, r *http.Request, userID UserID, chatID ChatID)
	// (PUT /update-log-title/{user_id}/{chat_id})
	UpdateLogTitle(w http.ResponseWriter, r *http.Request, userID UserID, chatID ChatID)
}

var _ ServerInterface = (*Server)(nil)

// RegisterAPIV1 mounts the gateway routes on r behind authMW. jsonMWs wrap
// every route except the generation stream.
func RegisterAPIV1(r chi.Router, srv ServerInterface, authMW func(http.Handler) http.Handler, jsonMWs ...func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Post("/generate-code", srv.GenerateCode)

		r.Group(func(r chi.Router) {
			r.Use(jsonMWs...)
			r.Post("/save-log", srv.SaveLog)
			r.Get("/get-logs", srv.GetLogs)
			r.Delete("/delete-log/{user_id}/{chat_id}", withLogPath(srv.DeleteLog))
			r.Put("/update-log-title/{user_id}/{chat_id}", withLogPath(srv.UpdateLogTitle))
		})
	})
}

func withLogPath(h func(http.ResponseWriter, *http.Request, UserID, ChatID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathParam(r, "user_id")
		if err != nil {
			unprocessable(w, "Invalid format for parameter user_id: "+err.Error())
			return
		}
		chatID, err := pathParam(r, "chat_id")
		if err != nil {
			unprocessable(w, "Invalid format for parameter chat_id: "+err.Error())
			return
		}
		h(w, r, userID, chatID)
	}
}

func pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	return v, err
}
