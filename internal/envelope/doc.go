// Package envelope provides the key hierarchy and sealing primitives of the vault.
//
// # Key Hierarchy
//
//	password --scrypt--> KEK --wraps--> MasterKey --wraps--> ProjectKey
//	                                        |                    |
//	                                        +--wraps--> DataKey <+--wraps
//	                                                       |
//	                                                    seals the detail value
//
// A SessionKey (the secret half of a session token) wraps the MasterKey for
// the lifetime of an admin session.
//
// Every key kind is its own type, and wrap/unwrap methods exist only for the
// pairs above. Code that holds a ProjectKey has no way to reach a master key,
// which is how the runtime path stays least-privilege.
//
// # Cipher
//
// All sealing uses ChaCha20-Poly1305 with a fresh 12-byte random nonce.
// The 16-byte tag is split off and kept in its own column. Each seal binds a
// fixed purpose label as associated data. Any authentication failure is
// reported as errors.ErrAuthFailed and nothing more specific.
//
// The password is stretched with scrypt (N=2^14, r=8, p=1) and a 16-byte salt.
//
// # Tokens
//
// A project token is the standard base64 encoding of the 32-byte project key.
// A session token is the base64 encoding of a 16-byte random id followed by
// the 32-byte session secret, 48 bytes in total. The length difference lets
// the CLI detect a project token pasted where a session token belongs.
package envelope
