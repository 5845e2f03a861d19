// Package cli provides the interactive SecureBank command-line client.
//
// It wires configuration, the encrypted local store, the authentication and
// session state machines, the connectivity monitor, the resilient bank
// client and the data services, then runs an interactive shell.
//
// Typical flow: enroll a passcode once, log in, browse the account,
// transactions and cards. Listings are served from the encrypted cache when
// it is fresh and refreshed in the background otherwise. Inactivity ends
// the session; "bg" and "fg" simulate the app leaving and returning to the
// foreground.
package cli
