// Package fingerprint derives deterministic storage keys for registry records
// and computes content fingerprints.
//
// A key is the SHA-256 of a versioned domain separator, a NUL byte, the
// length-prefixed discriminating fields and a one-byte proof:
//
//	SHA256(domain + 0x00 + len(f1) + f1 + ... + len(fn) + fn + proof)
//
// Lengths are 4-byte big-endian. The proof is searched from 255 downward and
// the first value whose key falls outside the reserved range is kept, so the
// same fields always produce the same (key, proof) pair. Records store the
// proof so a key can be reproduced later without searching.
//
// Only content-derived fields enter the key. Registering the same
// (author, content) twice always targets the same key, which makes the key
// itself the uniqueness constraint.
package fingerprint
