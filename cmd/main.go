package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/taras55555/chat-application-server/internal/api/messages"
	"github.com/taras55555/chat-application-server/internal/api/users"
	"github.com/taras55555/chat-application-server/internal/auth"
	"github.com/taras55555/chat-application-server/internal/chat"
	"github.com/taras55555/chat-application-server/internal/config"
	"github.com/taras55555/chat-application-server/internal/middleware"
	"github.com/taras55555/chat-application-server/internal/quotes"
	"github.com/taras55555/chat-application-server/internal/storage"
	"github.com/taras55555/chat-application-server/internal/storage/memory"
	mongostore "github.com/taras55555/chat-application-server/internal/storage/mongo"
	"github.com/taras55555/chat-application-server/internal/ws"
)

// predefinedUsers are the system accounts every new user gets a conversation
// with at signup.
var predefinedUsers = []string{"Support Bot", "Welcome Chat", "FAQ"}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; reading configuration from the environment")
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		userStore storage.Users
		convStore storage.Conversations
	)
	if cfg.MongoURI != "" {
		client, db, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("mongo: %v", err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
			}
		}()
		userStore, err = mongostore.NewUserStore(ctx, db)
		if err != nil {
			log.Fatalf("mongo users: %v", err)
		}
		convStore, err = mongostore.NewConversationStore(ctx, db)
		if err != nil {
			log.Fatalf("mongo conversations: %v", err)
		}
	} else {
		log.Println("MONGODB_URI not set; using in-memory stores")
		userStore = memory.NewUserStore()
		convStore = memory.NewConversationStore()
	}

	if err := userStore.EnsurePredefined(ctx, predefinedUsers); err != nil {
		log.Fatalf("predefined users: %v", err)
	}

	quoteClient := quotes.NewClient(cfg.QuotesURL)
	service := chat.NewService(convStore, userStore, quoteClient)

	var sessionStore auth.SessionStore
	if cfg.ValkeyAddr != "" {
		store, err := auth.NewValkeySessionStore(cfg.ValkeyAddr)
		if err != nil {
			log.Fatalf("valkey: %v", err)
		}
		defer store.Close()
		sessionStore = store
	} else {
		log.Println("VALKEY_ADDR not set; using in-memory sessions")
		sessionStore = auth.NewMemorySessionStore()
	}
	sessions := auth.NewManager(sessionStore, []byte(cfg.SessionSecret), cfg.SessionTTL)

	google := auth.NewGoogleHandler(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL, userStore, service, sessions)

	hub := ws.NewHub()
	relay := ws.NewRelay(hub, service, quoteClient, cfg.Origin)

	router := mux.NewRouter()
	router.Use(sessions.WithIdentity)

	router.HandleFunc("/login/federated/google", google.Login).Methods(http.MethodGet)
	router.HandleFunc("/oauth2/redirect/google", google.Callback).Methods(http.MethodGet)
	router.HandleFunc("/logout", google.Logout).Methods(http.MethodGet)

	users.RegisterUserRoutes(router, &users.UserHandler{Store: userStore}, sessions.Require)
	messages.RegisterMessageRoutes(router, &messages.MessageHandler{Service: service}, sessions.Require)
	router.HandleFunc("/ws", relay.ServeWS)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           middleware.CORS(cfg.Origin)(router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("Server started at %s", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("listen: %v", err)
	}
}
