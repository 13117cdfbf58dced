// Package http provides the inbound HTTP API of the gateway.
//
// Remote producers submit messages for delivery over OGx and query the
// resulting delivery status. The transport wires the submission service
// to a plain JSON API.
//
// # Usage
//
// Create and start an HTTP transport:
//
//	transport := http.NewHTTPTransport(submissions, stats,
//	    http.WithAddr(":8080"),
//	    http.WithTLS("cert.pem", "key.pem"),
//	    http.WithAPIKeys(keys),
//	    http.WithLogger(logger),
//	)
//	err := transport.Start(ctx)
//
// # Endpoints
//
//	POST /api/v1/messages           - Submit a message for delivery
//	GET  /api/v1/messages/{id}      - Delivery status of a submission
//	GET  /api/v1/dead-letters       - Submissions that exhausted retries
//	GET  /api/v1/stats              - Gateway counters
//	GET  /health                    - Component health
//	GET  /metrics                   - Prometheus metrics
//
// # Security
//
//   - TLS 1.2 minimum when HTTPS is enabled via WithTLS
//   - API key authentication (Argon2id hashes) on /api/v1 routes
//   - Origin allowlisting for browser clients via WithAllowedOrigins
//   - Real client IP extraction from X-Forwarded-For/X-Real-IP
package http
