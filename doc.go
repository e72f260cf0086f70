// Package identity provides session-lifecycle and identity-confirmation
// primitives (JWT pair minting, stateful session storage, HTTP endpoints)
// for an email/password identity service.
//
// Session model:
//   - Every user holds at most one active Session. Issuing a TokenPair on
//     register, login, or refresh rotates the stored refresh token in place,
//     so older refresh tokens stop working the moment a new pair is minted.
//   - Refresh verification is two-stage: the token must carry a valid
//     signature and expiry for the refresh secret class, and it must still
//     match the stored session. The store is the source of truth.
//
// Confirmation flows:
//   - Registration and password reset are persist-then-notify. The engine
//     creates the user (or reset ticket) first, then asks the Notifier to
//     deliver the confirmation link. When delivery ultimately fails the
//     engine compensates by deleting what it created, so no unreachable
//     accounts or orphaned reset tickets accumulate.
//   - RetryingNotifier wraps any Notifier with a bounded attempt budget and
//     a configurable backoff between attempts.
package identity
