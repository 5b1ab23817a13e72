package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"barcampgrid/internal/delivery/http/controllers"
	"barcampgrid/internal/delivery/http/hub"
	"barcampgrid/internal/delivery/http/middleware"
	"barcampgrid/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	gridController *controllers.GridController,
	authController *controllers.AuthController,
	changeHub *hub.Hub,
	verifier domain.TokenVerifier,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier)

	// Grid
	mux.HandleFunc("GET /grid", auth(gridController.GetGrid))
	mux.HandleFunc("GET /speakers", auth(gridController.ListSpeakers))
	mux.HandleFunc("POST /slots/{slotID}/talk", auth(gridController.AddTalk))
	mux.HandleFunc("DELETE /slots/{slotID}/talk", auth(gridController.RemoveTalk))
	mux.HandleFunc("POST /talks/{talkID}/move", auth(gridController.MoveTalk))
	mux.HandleFunc("PUT /talks/{talkID}", auth(gridController.UpdateTalk))

	// Slot-change stream
	mux.HandleFunc("GET /grid/subscribe", auth(changeHub.Subscribe))

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
