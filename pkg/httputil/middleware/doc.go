// Package middleware holds the HTTP middleware used by the REST server:
// request IDs, structured request logging, and CORS.
package middleware
