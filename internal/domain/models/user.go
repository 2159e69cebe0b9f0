package models

// User represents an account row. RefreshFingerprint holds the SHA-256
// digest of the currently live refresh token, or nil when no session exists.
type User struct {
	ID                 int64
	FirstName          string
	MiddleName         string
	LastName           string
	Username           string
	Email              string
	PassHash           []byte
	RefreshFingerprint *string
}

// Profile is the client-visible subset of a user.
type Profile struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
}

// Profile strips the credential fields from a user.
func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		FirstName:  u.FirstName,
		MiddleName: u.MiddleName,
		LastName:   u.LastName,
		Username:   u.Username,
		Email:      u.Email,
	}
}

// Identity is the authenticated principal attached to a request context.
type Identity struct {
	UserID   int64
	Username string
}

// TokenPair is an access token and its companion refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
