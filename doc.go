// Package auth implements email/password account management: signup,
// login with JWT access/refresh pairs, logout, email verification,
// email change, password change and reset, and profile updates.
//
// Token movement is split between Transports (bearer header, cookie)
// and Strategies (JWT); a Backend pairs one of each under a name, and
// the Authenticator walks backends in order to resolve the requesting
// account. Verification, reset, and email-change links carry opaque
// AES-GCM tokens minted by OpaqueTokenGenerator, scoped to a single
// purpose with the expiry derived from the embedded issue timestamp.
//
// Storage runs on bun; outbound mail and background work are consumed
// through the Mailer and TaskScheduler interfaces with SES and Redis
// implementations in subpackages.
package auth
