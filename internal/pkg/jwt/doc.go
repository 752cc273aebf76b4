// Package jwt issues and verifies the HS512 access/refresh token pair handed
// out at login, and carries verified claims through a request context.
package jwt
