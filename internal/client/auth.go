package client

import "net/http"

// Authenticator decorates outbound requests with credentials.
type Authenticator interface {
	Authenticate(req *http.Request) error
}

type BasicAuth struct {
	Username string
	Password string
}

func (b BasicAuth) Authenticate(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

type NoAuth struct{}

func (NoAuth) Authenticate(*http.Request) error {
	return nil
}

// NewAuthenticator picks basic auth when the service has credentials.
func NewAuthenticator(service Service) Authenticator {
	if service.Username == "" && service.Password == "" {
		return NoAuth{}
	}
	return BasicAuth{Username: service.Username, Password: service.Password}
}
