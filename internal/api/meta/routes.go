package meta

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterMetaRoutes(r *mux.Router, handler *MetaHandler) {
	r.HandleFunc("/api/config", handler.Config).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)
}
