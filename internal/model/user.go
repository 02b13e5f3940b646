package model

// User is the backend-owned user profile. A copy is cached in the
// credential store so cold starts can render without a network round trip.
type User struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
}
