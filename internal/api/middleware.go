package api

import (
	"errors"
	"net/http"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/service"
	"github.com/aleks10sadu-ops/k-c-bar/internal/telegram"
)

const initDataHeader = "X-Telegram-Init-Data"

type userHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// withUser authenticates a request from the Mini App and passes the resolved
// user to the wrapped handler.  In demo mode every request runs as the seeded
// demo user.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			switch {
			case errors.Is(err, telegram.ErrBadSignature),
				errors.Is(err, telegram.ErrStaleAuth),
				errors.Is(err, telegram.ErrMalformed):
				s.respondError(w, http.StatusUnauthorized, err.Error())
			default:
				s.logger.WithError(err).Error("authentication failed")
				s.respondError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}
		next(w, r, user)
	}
}

func (s *Server) authenticate(r *http.Request) (*models.User, error) {
	if s.demoMode {
		return s.demoUser, nil
	}

	raw := r.Header.Get(initDataHeader)
	if raw == "" {
		return nil, telegram.ErrMalformed
	}
	data, err := telegram.ValidateInitData(raw, s.botToken, s.svc.Now())
	if err != nil {
		return nil, err
	}
	return s.svc.EnsureUser(r.Context(), service.TelegramProfile{
		TelegramID: data.TelegramID,
		Username:   data.Username,
		FirstName:  data.FirstName,
		LastName:   data.LastName,
		PhotoURL:   data.PhotoURL,
	})
}
