// Package common contains shared constants and sentinel errors used across
// wipecert components.
package common

// AccessTokenHeaderName is the HTTP header carrying the registry access token
// on outbound requests.
const AccessTokenHeaderName = "Authorization"
