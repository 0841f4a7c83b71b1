// Package errs contains sentinel errors shared by the services, the rule
// synchronizer and the HTTP layer.
package errs

import "errors"

var (
	// ErrStorageRead indicates a partition could not be read.
	ErrStorageRead = errors.New("storage read failed")

	// ErrStorageWrite indicates a partition write did not complete.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrRuleSync indicates the host rejected a rule replacement.
	ErrRuleSync = errors.New("rule sync failed")

	// ErrImportValidation indicates a backup payload was rejected before anything was written.
	ErrImportValidation = errors.New("import validation failed")

	// ErrPassphraseMismatch indicates a passphrase did not verify.
	ErrPassphraseMismatch = errors.New("incorrect passphrase")

	// ErrPassphraseFormat indicates the stored hash is malformed.
	ErrPassphraseFormat = errors.New("invalid stored hash format")

	ErrWeakPassphrase   = errors.New("weak passphrase")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidDomain    = errors.New("invalid domain")
	ErrInvalidURL       = errors.New("invalid url")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrNuclearActive    = errors.New("nuclear mode active")
	ErrNuclearInactive  = errors.New("nuclear mode not active")
	ErrChallengeExpired = errors.New("challenge expired")
	ErrBypassDisabled   = errors.New("bypass disabled")
	ErrInvalidSetting   = errors.New("invalid setting")
	ErrPassphraseDiffer = errors.New("passphrases do not match")
)
