package paperless

import (
	"fmt"
	"net"
)

// Credentials are the user-supplied values exchanged for a token during setup.
// They are never persisted.
type Credentials struct {
	Host     string
	Port     string
	UseTLS   bool
	Username string
	Password string
}

// Session identifies an authenticated Paperless-NG instance.
//
// A Session is created once when setup completes and is passed by value to
// every refresh; nothing mutates it afterwards.
type Session struct {
	Host   string
	Port   string
	UseTLS bool
	Token  string
}

// BaseURL returns the API root, e.g. "https://docs.local:8000/api".
func (s Session) BaseURL() string {
	return apiBaseURL(s.Host, s.Port, s.UseTLS)
}

// EntityName returns the sensor entity name, "paperless-ng-{host}:{port}".
func (s Session) EntityName() string {
	return fmt.Sprintf("paperless-ng-%s:%s", s.Host, s.Port)
}

// authHeaders returns the headers sent with every authenticated request.
func (s Session) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Token " + s.Token,
		"Accept":        "application/json",
	}
}

func apiBaseURL(host, port string, useTLS bool) string {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(host, port) + "/api"
}
