package httpmw

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PresenceToucher обновляет last_seen для {userID,chatID}.
type PresenceToucher interface {
	TouchPresence(ctx context.Context, userID, chatID string) error
}

// PresenceTouchMiddleware обновляет присутствие, если в пути есть chatID.
func PresenceTouchMiddleware(presence PresenceToucher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromCtx(r.Context())
			if userID != "" {
				if chatID := chi.URLParam(r, "chatID"); chatID != "" {
					// best-effort: ошибки не прерывают запрос
					_ = presence.TouchPresence(r.Context(), userID, chatID)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
