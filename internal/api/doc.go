// Package api provides the JSON HTTP API for answering questions about
// course materials.
//
// # Architecture
//
// Routing uses Go 1.22 method patterns with a layered middleware stack:
//
//	Recovery → Logging → CORS → RateLimit → Routes
//
// The health probe bypasses the stack via a top-level mux so it stays fast
// and is never rate limited.
//
// # Endpoints
//
//	GET  /api/health       →  liveness probe, returns {"status":"ok"}
//	POST /api/query        →  answer a question, optionally within a session
//	GET  /api/courses      →  catalog analytics (course count and titles)
//	POST /api/session/new  →  rotate a conversation session
//
// CORS is permissive: the API serves a browser frontend during development
// and carries no cookies or credentials.
package api
