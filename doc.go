// Package backend provides the Campus Confessions API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication, password reset, and TOTP two-factor
// - internal/notify: Notification persistence and fan-out (email + live push)
// - internal/websocket: WebSocket hub for real-time updates
// - internal/moderation: Profanity filtering and report thresholds
// - internal/billing: Stripe subscription integration
// - internal/jobs: Background maintenance jobs (rankings, expiry, pruning)
// - internal/export: Analytics report generation (CSV/JSON)
// - internal/database: Database connection and migrations
// - internal/email: SES email delivery
// - internal/middleware: HTTP middleware (auth, rate limiting, metrics)
// - internal/cache: Redis client and cache keys

// See the individual package documentation for detailed API reference.
package backend
