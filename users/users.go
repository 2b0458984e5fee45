// Package users holds the durable per-user record owned by the backend,
// keyed by the provider identity id.
package users

import "time"

// User is the canonical backend record for one provider identity.
//
// CreatedAt is written once, at first login, and is immutable afterwards.
// RequestCount is preserved across logins; only usage-tracking code outside
// the auth path increments it. All profile fields are overwritten with the
// latest provider values on every login.
type User struct {
	ID              string    `json:"id_str"` // Provider identity id, primary key
	ScreenName      string    `json:"screen_name"`
	Name            string    `json:"name"`
	ProfileImageURL string    `json:"profile_image_url_https"`
	CreatedAt       time.Time `json:"created_at"`
	LastLogin       time.Time `json:"last_login"`

	// Usage counters, never touched by the login path.
	RequestCount         int     `json:"number_requests"`
	IsPaid               bool    `json:"is_paid"`
	Budget               float64 `json:"budget"`
	VideoDownloadsBudget int     `json:"video_downloads_budget"`
	VideoDownloaded      int     `json:"video_downloaded"`
}
