// Package identity implements a user-account authentication service:
// registration with email confirmation, credential verification, JWT
// issuance, and password-reset flows.
//
// Account lifecycle:
//   - Accounts are created unconfirmed with a single-use confirmation token
//     (1 hour expiry). Confirming the token moves the account to the
//     confirmed status; unconfirmed accounts cannot authenticate even with
//     correct credentials.
//   - An account carries at most one outstanding pending token at a time,
//     tagged with its purpose (confirmation or reset). Issuing a new token
//     overwrites the slot; consuming one clears it in the same transaction.
//
// Flows are modeled as command message/handler pairs (RegisterAccount,
// ConfirmEmail, InitializePasswordReset, FinalizePasswordReset) executed
// against a RepositoryManager backed by Bun. Credential verification and
// JWT issuance live in AccountProvider and Auther.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     command handlers to describe registration, login, confirmation, and
//     password reset events. Sinks run best-effort (errors are logged) so
//     you can forward to a database or queue without blocking authentication.
package identity
