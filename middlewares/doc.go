// Package middlewares provides net/http middleware for the approval API.
//
// RequestID assigns every request an identifier, taken from an upstream
// header when present or generated as a UUID, and stores it in the request
// context where [RequestIDExtractor] exposes it to the logger:
//
//	log := logger.New(cfg, middlewares.RequestIDExtractor())
//	r.Use(middlewares.RequestID())
//
// Recover turns a handler panic into a JSON 500 response and logs it with a
// truncated stack. CORS answers preflight requests and decorates responses
// for allowed origins.
package middlewares
