package common

// AccessTokenHeaderName is the HTTP header used to carry the access token on
// outbound API requests and the websocket handshake.
const AccessTokenHeaderName = "Authorization"

// DecryptionPlaceholder is shown in place of a message body that could not be
// decrypted. One bad historical message must never block the rest of a
// conversation, so callers substitute this string and keep going.
const DecryptionPlaceholder = "[Unable to decrypt message]"
