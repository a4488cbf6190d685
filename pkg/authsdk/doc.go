/*
Package authsdk is a client for the evote authentication service.

Logging in is two calls: Login checks the password and opens an OTP step,
VerifyOTP answers it and returns a Session.

	client := authsdk.NewSDKClient("https://auth.example.edu")

	res, err := client.Login(ctx, authsdk.PortalStudent, authsdk.LoginRequest{
		Identifier: "stu001",
		Password:   password,
		Method:     authsdk.MethodEmail,
	})
	if err != nil {
		return err // *authsdk.APIError, e.g. invalid_credentials
	}

	session, err := client.VerifyOTP(ctx, authsdk.VerifyOTPRequest{
		Identifier: "stu001",
		MFAToken:   res.MFAToken,
		Code:       codeFromEmail,
		Method:     res.Method,
	})

# First super admin login

A super admin without an enrolled authenticator gets State
StateOTPSetupPending with QRURI and ManualKey. The first code is submitted
with IsSetup set:

	session, err := client.VerifyOTP(ctx, authsdk.VerifyOTPRequest{
		Identifier: email,
		MFAToken:   res.MFAToken,
		Code:       codeFromApp,
		Method:     authsdk.MethodAuthenticator,
		IsSetup:    true,
	})

# Sessions

Session.AccessToken refreshes the access token shortly before it expires.
Refreshing never rotates the refresh token. Sessions are safe for
concurrent use.

# Errors

Every non-2xx response is returned as an *APIError and matches the
package's predefined errors with errors.Is:

	if errors.Is(err, authsdk.ErrExpiredOTP) {
		// log in again for a new code
	}
*/
package authsdk
