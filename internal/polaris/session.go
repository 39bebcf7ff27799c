package polaris

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	sessionContentType = "application/json;charset=UTF-8"
	sessionAccept      = "application/json, text/plain"
)

// Session is the authenticated identity of a Client. It never changes after
// the credential exchange; a new token means a new Client.
type Session struct {
	domain   string
	username string
	token    string
	baseURL  string
}

// Domain returns the tenant subdomain.
func (s Session) Domain() string { return s.domain }

// Username returns the account the token was issued to.
func (s Session) Username() string { return s.username }

// BaseURL returns the tenant base URL, e.g. https://acme.my.rubrik.com.
func (s Session) BaseURL() string { return s.baseURL }

// GraphQLURL returns the GraphQL endpoint of the tenant.
func (s Session) GraphQLURL() string { return s.baseURL + models.GraphQLPath }

// String implements fmt.Stringer without exposing the token.
func (s Session) String() string {
	return fmt.Sprintf("polaris session %s@%s", s.username, s.baseURL)
}

// ResolveToken exchanges username and password for an access token at
// https://{domain}.{rootDomain}/api/session. An empty rootDomain selects
// my.rubrik.com. Every failure is an *AuthenticationError; there is a
// single attempt.
func ResolveToken(ctx context.Context, httpClient *resty.Client, domain, username, password, rootDomain string) (string, error) {
	return requestToken(ctx, httpClient, models.TenantURL(domain, rootDomain)+models.SessionPath, domain, username, password)
}

func requestToken(ctx context.Context, httpClient *resty.Client, sessionURL, domain, username, password string) (string, error) {
	if domain == "" || username == "" || password == "" {
		return "", &AuthenticationError{Domain: domain, Message: "domain, username and password are required"}
	}

	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", &AuthenticationError{Domain: domain, Message: "cannot encode credentials", Err: err}
	}

	resp, err := httpClient.R().
		SetContext(ctx).
		SetHeader(headerContentType, sessionContentType).
		SetHeader(headerAccept, sessionAccept).
		SetBody(payload).
		Post(sessionURL)
	if err != nil {
		return "", &AuthenticationError{Domain: domain, Message: "session endpoint unreachable", Err: err}
	}

	status := resp.StatusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", &AuthenticationError{Domain: domain, StatusCode: status, Message: "session request rejected"}
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return "", &AuthenticationError{Domain: domain, StatusCode: status, Message: "session response is not JSON"}
	}

	token := gjson.GetBytes(body, "access_token")
	if token.Type != gjson.String || token.Str == "" {
		return "", &AuthenticationError{Domain: domain, StatusCode: status, Message: "session response carries no access_token"}
	}

	return token.Str, nil
}
