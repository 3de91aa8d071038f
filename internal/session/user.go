package session

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Role distinguishes developer accounts from regular users.
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleStudent   Role = "student"
)

const (
	planAdmin        = "Admin Access"
	planFree         = "Free Access"
	creditsUnlimited = "Unlimited"
	developerName    = "Developer"
)

var (
	// ErrEmailRequired is returned by Login for a blank email.
	ErrEmailRequired = errors.New("email required")
	// ErrPasswordRequired is returned by Login for a developer without a password.
	ErrPasswordRequired = errors.New("password required for developer login")
)

// User is the signed-in profile.
type User struct {
	Email      string    `json:"email" msgpack:"email"`
	Name       string    `json:"name" msgpack:"name"`
	Plan       string    `json:"plan" msgpack:"plan"`
	Credits    string    `json:"credits" msgpack:"credits"`
	Role       Role      `json:"role" msgpack:"role"`
	LoggedInAt time.Time `json:"logged_in_at" msgpack:"logged_in_at"`
}

// Login builds the user profile for email. Addresses listed in
// developerEmails get the developer role and must supply a password, which
// is checked for presence only. Other users default their name to the part
// of the email before "@".
func Login(email, name, password string, developerEmails []string, now time.Time) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, ErrEmailRequired
	}
	if slices.Contains(developerEmails, strings.ToLower(email)) {
		if password == "" {
			return User{}, ErrPasswordRequired
		}
		return User{
			Email:      email,
			Name:       developerName,
			Plan:       planAdmin,
			Credits:    creditsUnlimited,
			Role:       RoleDeveloper,
			LoggedInAt: now,
		}, nil
	}
	finalName := strings.TrimSpace(name)
	if finalName == "" {
		finalName, _, _ = strings.Cut(email, "@")
	}
	return User{
		Email:      email,
		Name:       finalName,
		Plan:       planFree,
		Credits:    creditsUnlimited,
		Role:       RoleStudent,
		LoggedInAt: now,
	}, nil
}
