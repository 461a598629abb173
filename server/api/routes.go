package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/framewire-net/framewire/x/transport"
)

// TransportStats is the view of the TCP transport the admin API exposes.
type TransportStats interface {
	Connections() []transport.ConnectionInfo
	Connection(id string) (transport.ConnectionInfo, bool)
	Count() int
	EncodingNames() []string
}

// RegisterRoutes mounts the admin endpoints onto the server's router.
func (s *Server) RegisterRoutes(stats TransportStats) {
	s.Router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	s.Router.HandleFunc("/v1/encodings", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"encodings": stats.EncodingNames(),
		})
	}).Methods(http.MethodGet)

	s.Router.HandleFunc("/v1/connections", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"count":       stats.Count(),
			"connections": stats.Connections(),
		})
	}).Methods(http.MethodGet)

	s.Router.HandleFunc("/v1/connections/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		info, ok := stats.Connection(id)
		if !ok {
			WriteError(w, r, http.StatusNotFound, "connection_not_found",
				"no live connection with that id", map[string]any{"id": id})
			return
		}
		WriteJSON(w, http.StatusOK, info)
	}).Methods(http.MethodGet)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
