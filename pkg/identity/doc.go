// Package identity abstracts the remote identity provider consumed by the
// session layer.
//
// The Provider interface covers exactly what the session layer needs:
// credential sign-in, account creation, display name updates, sign-out and a
// subscription to identity-state changes. The subscription contract mirrors
// the behavior of hosted providers: the handler fires once at registration
// time with the current identity and again after every state change, whoever
// caused it.
//
// MemoryProvider is a full in-process implementation for tests and local
// development. Production hosts adapt their real provider SDK to the Provider
// interface instead.
package identity
