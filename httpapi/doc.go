// Package httpapi serves the session endpoints over HTTP with gorilla/mux.
//
// Routes:
//
//	POST /auth/login        {email, password}            -> data: token
//	POST /auth/renew-token  {email} + Bearer (may be expired) -> data: token
//	POST /auth/register     {email, password, fullName}  -> data: {email, fullName}
//	GET  /auth/session      Bearer                       -> data: {subject, roles, tokenId, expiresAt}
//
// Every response, success or failure, is a {success, data, error} envelope.
package httpapi
