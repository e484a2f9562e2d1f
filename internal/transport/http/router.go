package http

import (
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

func NewRouter(h *Handler, presence httpmw.PresenceToucher, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-User-ID"},
	}).Handler)

	// WS endpoint
	r.Get("/ws", wsServer.HandleWS)

	// Все маршруты требуют access_token и user_id
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware)
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/chats", func(cr chi.Router) {
			cr.Post("/", h.CreateChat)
			cr.Get("/", h.GetChats)

			cr.Route("/{chatID}", func(rr chi.Router) {
				rr.Use(httpmw.PresenceTouchMiddleware(presence))

				rr.Get("/", h.GetChat)
				rr.Delete("/", h.DeleteChat)
				rr.Delete("/hard", h.HardDeleteChat)
				rr.Post("/members", h.AddMember)
				rr.Post("/restore", h.RestoreChat)
				rr.Get("/presence", h.GetPresence)
				rr.Put("/presence", h.UpdatePresence)
				rr.Put("/typing", h.UpdateTyping)
				rr.Put("/mute", h.ToggleMute)
				rr.Post("/read-all", h.MarkAllRead)
				rr.Get("/can-send", h.CanSend)
			})
		})

		pr.Route("/messages", func(mr chi.Router) {
			mr.Post("/", h.CreateMessage)
			mr.Get("/", h.ListMessages)
			mr.Get("/{id}", h.GetMessage)
			mr.Post("/{id}/read", h.MarkMessageRead)
		})

		pr.Route("/notifications", func(nr chi.Router) {
			nr.Get("/unread", h.GetUnreadNotifications)
			nr.Post("/{id}/read", h.MarkNotificationRead)
		})

		pr.Get("/users/me/unread-counts", h.GetUnreadCounts)
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
