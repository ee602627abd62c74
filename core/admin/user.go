package admin

import (
	"net/http"

	"github.com/kamalshkeir/kadmin/core/kamux"
)

type UserData struct {
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// UserDescriptor is the identity shown in the panel header
type UserDescriptor struct {
	Data      UserData `json:"data"`
	LogoutURL string   `json:"logoutUrl"`
}

// UserResolver resolve the user of a request
type UserResolver interface {
	ResolveCurrentUser(r *http.Request) (*UserDescriptor, error)
}

// StaticUser always resolve to the same user
type StaticUser UserDescriptor

func (s StaticUser) ResolveCurrentUser(*http.Request) (*UserDescriptor, error) {
	u := UserDescriptor(s)
	return &u, nil
}

// SessionUser resolve the user from the session cookie
type SessionUser struct {
	LogoutURL string
}

func (s SessionUser) ResolveCurrentUser(r *http.Request) (*UserDescriptor, error) {
	user, err := kamux.UserFromSession(r)
	if err != nil {
		return nil, &UnauthorizedError{}
	}
	return &UserDescriptor{
		Data: UserData{
			Name:    user.Email,
			Picture: user.Image,
		},
		LogoutURL: s.LogoutURL,
	}, nil
}
