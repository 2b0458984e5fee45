package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/replywing/replywing/provider"
	"github.com/replywing/replywing/users"
)

// Fixed user-facing messages. Provider and store detail stays in the server
// logs.
const (
	msgInvalidProviderData = "Invalid user data received from provider."
	msgInternalError       = "Internal server error."
	msgMissingAccessToken  = "Missing access token."
	msgMissingRevokeToken  = "Missing token to revoke."
	msgCredentialFailure   = "Failed to retrieve application credentials for revocation."
	msgRevocationFailed    = "Failed to revoke token."
	msgTokenRevoked        = "Token revoked successfully."
)

// LoginHandler verifies the caller's provider access token and upserts the
// canonical user record. Profile fields are always overwritten with the
// latest provider values; CreatedAt and the usage counters survive logins
// untouched.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccessToken string `json:"accessToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
			writeMessage(w, http.StatusBadRequest, msgMissingAccessToken)
			return
		}

		profile, err := s.provider.VerifyCredentials(r.Context(), req.AccessToken)
		if err != nil {
			log.Warn().Err(err).Msg("provider identity verification failed")
			writeMessage(w, http.StatusBadGateway, msgInvalidProviderData)
			return
		}

		now := s.nowTime()
		user := &users.User{
			ID:              profile.ID,
			ScreenName:      profile.ScreenName,
			Name:            profile.Name,
			ProfileImageURL: profile.ProfileImageURL,
			CreatedAt:       now,
			LastLogin:       now,
		}

		existing, err := s.users.Get(r.Context(), profile.ID)
		switch {
		case err == nil:
			user.CreatedAt = existing.CreatedAt
			user.RequestCount = existing.RequestCount
			user.IsPaid = existing.IsPaid
			user.Budget = existing.Budget
			user.VideoDownloadsBudget = existing.VideoDownloadsBudget
			user.VideoDownloaded = existing.VideoDownloaded
		case errors.Is(err, users.ErrNotFound):
			// First login: CreatedAt = LastLogin = now, counters at zero.
		default:
			log.Error().Err(err).Str("user_id", profile.ID).Msg("user lookup failed")
			writeMessage(w, http.StatusInternalServerError, msgInternalError)
			return
		}

		if err := s.users.Upsert(r.Context(), user); err != nil {
			log.Error().Err(err).Str("user_id", profile.ID).Msg("user upsert failed")
			writeMessage(w, http.StatusInternalServerError, msgInternalError)
			return
		}

		log.Info().Str("user_id", user.ID).Str("screen_name", user.ScreenName).Msg("user logged in")
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Login successful.",
			"userData": user,
		})
	}
}

// LogoutHandler revokes the given token with the provider using the cached
// app credentials. A credential fetch failure is reported distinctly from a
// provider-side revocation failure and skips the revocation call entirely;
// the two share only the HTTP status, never the log line.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TokenToRevoke string `json:"tokenToRevoke"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TokenToRevoke == "" {
			writeMessage(w, http.StatusBadRequest, msgMissingRevokeToken)
			return
		}

		creds, err := s.creds.GetOrFetch(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("app credential fetch failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"message": msgCredentialFailure,
			})
			return
		}

		if err := s.provider.Revoke(r.Context(), req.TokenToRevoke, creds); err != nil {
			var revErr *provider.RevocationError
			if errors.As(err, &revErr) {
				// Raw provider output is for these logs only.
				log.Error().
					Str("reason", revErr.Reason.String()).
					Int("provider_status", revErr.Status).
					Str("provider_body", revErr.Body).
					Msg("token revocation failed")
			} else {
				log.Error().Err(err).Msg("token revocation failed")
			}
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"message": msgRevocationFailed,
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": msgTokenRevoked,
		})
	}
}
