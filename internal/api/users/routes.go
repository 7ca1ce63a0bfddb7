package users

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterUserRoutes registers the user-directory endpoints. /user stays open
// so the frontend can probe the session; the rest require one.
func RegisterUserRoutes(router *mux.Router, handler *UserHandler, requireAuth mux.MiddlewareFunc) {
	protected := func(h http.HandlerFunc) http.Handler {
		return logRequest(requireAuth(h))
	}

	router.Handle("/user", logRequest(http.HandlerFunc(handler.CurrentUser))).Methods(http.MethodGet)
	router.Handle("/user/{id}", protected(handler.GetUser)).Methods(http.MethodGet)
	router.Handle("/users", protected(handler.ListUsers)).Methods(http.MethodGet)
	router.Handle("/users/{search}", protected(handler.SearchUsers)).Methods(http.MethodGet)
}

func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[users] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
