// Package spotify performs the OAuth2 token exchanges against the Spotify
// Accounts service.
//
// Spotify follows RFC 6749 closely: form-encoded token requests authenticated
// with HTTP Basic client credentials, and optional refresh token rotation
// (a refresh response may or may not carry a new refresh token).
//
// # Exchanger
//
// Use NewExchanger with the application's client credentials:
//
//	ex := spotify.NewExchanger(clientID, clientSecret, redirectURI, spotify.Endpoint)
//	grant, err := ex.ExchangeCode(ctx, code)
//
// Every exchange is a single attempt. Provider rejections surface as
// *UpstreamError, transport failures as *TransportError; no retries are made.
package spotify
