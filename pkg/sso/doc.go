// Package sso implements federated login over OpenID Connect. A successful
// provider callback is linked to a local account by email, provisioning the
// account on first login, and ends in a redirect that carries a locally
// minted token back to the frontend.
package sso
