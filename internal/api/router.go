package api

import (
	"net/http"
	"time"

	"shoplist/internal/api/handler"
	"shoplist/internal/api/middleware"
	"shoplist/internal/app/service"
	"shoplist/internal/common"
	"shoplist/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(
	authority *security.TokenAuthority,
	revocations middleware.RevocationChecker,
	authService *service.AuthService,
	userService *service.UserService,
	groupService *service.GroupService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies a bearer token when present and puts claims in the context.
	// Public routes ignore the result; protected routes check it via the
	// Authenticator middleware below.
	r.Use(authority.Verifier())

	auth := middleware.Authenticator(revocations)

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(api chi.Router) {
		userHandler := handler.NewUserHandler(authService, userService)
		api.Route("/users", func(ur chi.Router) {
			userHandler.RegisterRoutes(ur, auth)
		})

		authHandler := handler.NewAuthHandler(authService)
		api.Route("/auth", func(ar chi.Router) {
			authHandler.RegisterRoutes(ar, auth)
		})

		groupHandler := handler.NewGroupHandler(groupService)
		api.Route("/groups", func(gr chi.Router) {
			groupHandler.RegisterRoutes(gr, auth)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, "Not found")
	})

	return r
}
