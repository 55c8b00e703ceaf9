// Package securecore is the security core for a medical-practice API: token
// issuance and validation, credential verification with lockout and MFA,
// field-level encryption, policy enforcement, audit logging, idle-session
// tracking, and tiered rate limiting.
//
// The [Engine] orchestrates the credential flows. Build one with [New]:
//
//	engine, err := securecore.New().
//		WithConfig(cfg).
//		WithUserStore(store).
//		WithPolicy(enforcer).
//		Build()
//
// Subpackages hold the independent primitives: token, password, fieldcrypt,
// policy, audit, activity, and ratelimit. Each can be used on its own; the
// Engine composes them.
package securecore
