// Package auth provides user registration and the two ways a request can
// prove who it is: a session cookie (browser login) or the account's
// fixed access key sent as a Bearer token (API clients).
package auth
