// Package registration implements the one-time migration and registration
// flow for legacy accounts: identity verification through short-lived numeric
// codes delivered over SMS or email, PIN enrollment, and IC-number + PIN
// login.
//
// Account lifecycle:
//   - Accounts never store an explicit state column. AccountState is derived
//     from the persisted flags by DeriveAccountState, and the
//     AccountStateMachine centralizes the transition graph so every handler
//     enforces the same invariants (an account that finished migration is
//     terminal for registration purposes).
//   - Verification codes live one-per-(user, purpose). Issuing a new code
//     overwrites the previous row in place, so at most one code is ever
//     outstanding for a channel; confirming marks the row used but keeps it
//     for audit.
//
// Command handlers follow the message/handler shape: build a message, call
// Execute with a context, and read the result through the message's
// OnResponse callback. Domain failures are returned as go-errors values
// carrying a stable text code and an HTTP status for boundary translation;
// anything else is an unexpected infrastructure failure.
package registration
