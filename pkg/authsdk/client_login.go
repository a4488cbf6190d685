package authsdk

import (
	"context"
	"net/http"
)

// Login submits credentials through portal's endpoint and reports the
// pending OTP step.
func (c *SDKClient) Login(ctx context.Context, portal Portal, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/"+string(portal)+"/login", req, "")
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP completes a pending login and returns the new session.
func (c *SDKClient) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Session, error) {
	tokens, err := c.verifyOTP(ctx, req)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

func (c *SDKClient) verifyOTP(ctx context.Context, req VerifyOTPRequest) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/verify-otp", req, "")
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token. The response
// carries no refresh token; the old one stays valid.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeToken invalidates a refresh token. Unknown tokens are not an error.
func (c *SDKClient) RevokeToken(ctx context.Context, refreshToken string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/revoke", RefreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
