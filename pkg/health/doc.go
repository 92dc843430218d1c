// Package health provides liveness and readiness probe handlers.
//
// Readiness runs a set of named [Checks] concurrently under a shared timeout
// and answers 200 when all pass, 503 otherwise:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "storage": store.Ping,
//	    "mail":    relay.Ping,
//	}))
//
// Both handlers respond with JSON:
//
//	{"status":"unhealthy","checks":{"storage":{"status":"unhealthy","error":"...","duration":"3ms"}}}
package health
