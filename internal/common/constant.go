package common

// AuthHeaderName is the HTTP header used to carry the access token on
// outbound requests, including the websocket handshake.
const AuthHeaderName = "Authorization"

// AuthScheme prefixes the token value in AuthHeaderName.
const AuthScheme = "Bearer"
