// Package hash hashes and verifies secrets.
//
// Bcrypt is used for account passwords. HMACSHA256 is a keyed, deterministic
// digest used where the value must be comparable without being stored in
// clear: OTP codes and object storage keys.
package hash
