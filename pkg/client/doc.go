// Package client provides the Guava Nexus Go SDK. It drives the wallet
// signing flow (nonce fetch, canonical message construction, personal_sign)
// and exposes typed calls for hashname claims, hashroot requests and
// resolutions, and seed publishing.
package client
