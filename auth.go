package dgrpc

import "context"

const (
	cmdAuthorize    = "AUTHORIZE"
	cmdAuthenticate = "AUTHENTICATE"
)

// authorizeArgs is the args payload for AUTHORIZE.
type authorizeArgs struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}

// authorizeResult is the decoded data of an AUTHORIZE response.
type authorizeResult struct {
	Code string `json:"code"`
}

// authenticateArgs is the args payload for AUTHENTICATE.
type authenticateArgs struct {
	AccessToken string `json:"access_token"`
}

// authenticateResult is the decoded data of an AUTHENTICATE response.
// Its fields are not surfaced beyond confirming the call did not return
// an error variant.
type authenticateResult struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// Authorize drives the full authorize/exchange/authenticate flow: send
// AUTHORIZE over the IPC connection (Discord shows its consent dialog),
// exchange the returned code for a token at Discord's OAuth2 endpoint,
// persist the result, and confirm it with AUTHENTICATE. NewClient runs
// this automatically when OAuth2 is configured and no usable token is
// on disk; calling it again re-consents with a different scope set.
func (c *Client) Authorize(ctx context.Context, scopes []string) error {
	if c.oauth == nil {
		return newError(ErrConfigFailed, errOAuth2NotConfigured)
	}

	args := authorizeArgs{ClientID: c.appID, Scopes: scopes}
	auth, err := doNoAuth[authorizeResult](c, ctx, cmdAuthorize, "", args)
	if err != nil {
		return err
	}

	if err := c.oauth.Authorize(ctx, auth.Code); err != nil {
		return newError(ErrOAuth2, err)
	}

	return c.ensureAuthenticated(ctx)
}

// ensureAuthenticated sends AUTHENTICATE whenever the current access
// token differs from the one the connection last authenticated with:
// once at startup for a token loaded from disk, and again after every
// refresh. AccessToken performs the double-checked refresh first, so
// concurrent callers coalesce on one token exchange; the mutex here
// coalesces the follow-up AUTHENTICATE the same way.
func (c *Client) ensureAuthenticated(ctx context.Context) error {
	token, err := c.oauth.AccessToken(ctx)
	if err != nil {
		return newError(ErrOAuth2, err)
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()
	if token == c.authedToken {
		return nil
	}
	if _, err := doNoAuth[authenticateResult](c, ctx, cmdAuthenticate, "", authenticateArgs{AccessToken: token}); err != nil {
		return err
	}
	c.authedToken = token
	return nil
}

// bootstrapAuth runs the startup half of the authorization flow: a
// token loaded from disk is confirmed with AUTHENTICATE; a stale or
// revoked one falls through to the full AUTHORIZE exchange using the
// configured scopes.
func (c *Client) bootstrapAuth(ctx context.Context, scopes []string) error {
	if c.oauth.HasToken() {
		err := c.ensureAuthenticated(ctx)
		if err == nil {
			return nil
		}
		c.logger.Warn("stored_token_rejected", "error", err)
	}
	return c.Authorize(ctx, scopes)
}
