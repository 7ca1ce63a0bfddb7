package messages

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterMessageRoutes registers the conversation endpoints. All of them
// require an authenticated session.
func RegisterMessageRoutes(router *mux.Router, handler *MessageHandler, requireAuth mux.MiddlewareFunc) {
	r := router.PathPrefix("/messages").Subrouter()
	r.Use(logRequest, requireAuth)

	r.HandleFunc("", handler.ListContacts).Methods(http.MethodGet)
	r.HandleFunc("", handler.SendMessage).Methods(http.MethodPost)
	r.HandleFunc("/bot", handler.PostBotMessage).Methods(http.MethodPost)
	r.HandleFunc("/{participant}", handler.GetHistory).Methods(http.MethodGet)
}

func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[messages] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
