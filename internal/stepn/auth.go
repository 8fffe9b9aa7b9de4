package stepn

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	loginTypePassword = 3
	loginDeviceInfo   = "web"
)

type loginData struct {
	SessionID string `json:"sessionID"`
}

// Login starts a session with a hashed password, the session is only usable
// after CodeCheck succeeded.
func (c *Client) Login(ctx context.Context, account, passwordHash string) (string, error) {
	env, err := c.call(ctx, "login", Params{}.
		Add("account", account).
		Add("password", passwordHash).
		Add("type", loginTypePassword).
		Add("deviceInfo", loginDeviceInfo))
	if err != nil {
		return "", err
	}

	var data loginData
	err = json.Unmarshal(env.Data, &data)
	if err != nil {
		return "", &TransportError{Endpoint: "login", Err: fmt.Errorf("decode data: %w", err)}
	}
	if data.SessionID == "" {
		return "", &APIError{Code: env.Code, Msg: "login returned no session id"}
	}
	return data.SessionID, nil
}

// CodeCheck confirms the session with a TOTP code.
func (c *Client) CodeCheck(ctx context.Context, sessionID, code string) error {
	_, err := c.call(ctx, "doCodeCheck", Params{}.
		Add("codeData", "2:"+code).
		Add("sessionID", sessionID))
	return err
}

// UserBasic is the cheapest authenticated call, it is used to probe whether a
// session id is still valid.
func (c *Client) UserBasic(ctx context.Context, sessionID string) error {
	_, err := c.call(ctx, "userbasic", Params{}.Add("sessionID", sessionID))
	return err
}
