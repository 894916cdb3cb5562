package thrutext

import (
	"context"
	"net/http"
)

// Session is an authenticated API session.
type Session struct {
	Token     string
	AccountID string
}

type loginAttributes struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionAttributes struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a token and installs the session on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/sessions", nil, newPayload(loginAttributes{
		Email:    email,
		Password: password,
	}))
	if err != nil {
		return nil, wrapError("login", "sessions", "", err)
	}

	doc, err := decodeDocument[sessionAttributes](body)
	if err != nil {
		return nil, wrapError("login", "sessions", "", err)
	}
	if doc.Data.Attributes.Token == "" {
		return nil, wrapError("login", "sessions", "", ErrUnauthorized)
	}

	var accountID string
	for _, inc := range doc.Included {
		if inc.Type == "account" {
			accountID = string(inc.ID)
			break
		}
	}
	if accountID == "" {
		return nil, wrapError("login", "sessions", "", ErrNoAccount)
	}

	c.SetSession(doc.Data.Attributes.Token, accountID)
	c.logger.Info("logged in to thrutext", "account", accountID)

	return &Session{Token: doc.Data.Attributes.Token, AccountID: accountID}, nil
}
