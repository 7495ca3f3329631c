// Package middleware provides HTTP middleware for the automation runner.
//
// The stack is small: CORS for the dashboard client and per-IP rate
// limiting for the command endpoints. Request metrics live in the
// monitoring package; panic recovery comes from gin.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
