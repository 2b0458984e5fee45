// Package session persists the authenticated user's tokens and profile for
// the lifetime of the client. A session is committed atomically: token
// fields and profile fields are never written separately.
package session

import (
	"strings"
	"time"

	"github.com/replywing/replywing/backendapi"
)

// Profile is the canonical user record mirrored from the backend.
type Profile struct {
	ID                   string  `json:"id"`
	Handle               string  `json:"handle"`
	DisplayName          string  `json:"display_name"`
	AvatarURL            string  `json:"avatar_url"`
	RequestCount         int     `json:"request_count"`
	IsPaid               bool    `json:"is_paid"`
	Budget               float64 `json:"budget"`
	VideoDownloadsBudget int     `json:"video_downloads_budget"`
	VideoDownloaded      int     `json:"video_downloaded"`
}

// ProfileFromUserData maps backend userData field-for-field onto the
// normalized profile.
func ProfileFromUserData(ud backendapi.UserData) Profile {
	return Profile{
		ID:                   ud.ID,
		Handle:               ud.ScreenName,
		DisplayName:          ud.Name,
		AvatarURL:            ud.ProfileImageURL,
		RequestCount:         ud.RequestCount,
		IsPaid:               ud.IsPaid,
		Budget:               ud.Budget,
		VideoDownloadsBudget: ud.VideoDownloadsBudget,
		VideoDownloaded:      ud.VideoDownloaded,
	}
}

// Tokens is the credential half of a session as returned by the token
// endpoint.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	Scope        string
}

// Session is an authenticated user. A zero ExpiresAt means the token
// response carried no expires_in and the token is treated as non-expiring.
type Session struct {
	AccessToken   string    `json:"access_token"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	GrantedScopes []string  `json:"granted_scopes,omitempty"`
	Profile       Profile   `json:"profile"`
}

// New assembles a session from fresh tokens and the synced user record.
func New(tokens Tokens, profile Profile, now time.Time) *Session {
	s := &Session{
		AccessToken:   tokens.AccessToken,
		RefreshToken:  tokens.RefreshToken,
		GrantedScopes: strings.Fields(tokens.Scope),
		Profile:       profile,
	}
	if tokens.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}
	return s
}

// ActionRecord is the transient result of the last login/logout attempt,
// consumed by the UI layer for toast notifications.
type ActionRecord struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Action statuses stored in an ActionRecord.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
