// Package loginservice handles provider login inside the identity-access
// context: it verifies an external access token, resolves the identity to a
// local account (seeding the starting balance on first login), and issues the
// session token the API server authenticates with.
package loginservice
