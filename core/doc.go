// Package core contains the add-on domain contracts: installation credentials,
// the credential store contract, chat atoms (users, rooms, messages), the error
// taxonomy, and configuration. Higher-level packages (events, hooks, client)
// depend on core; core depends on none of them.
package core
