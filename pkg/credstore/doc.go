// Package credstore loads management credentials from places outside the
// platform model: the operating system keyring and Azure Key Vault.
//
// Every source reports a missing credential as (nil, nil), the same
// absent policy azure.ResolveCredential uses, so callers can chain
// sources and fall through to the next one.
package credstore
