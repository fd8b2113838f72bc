// Package shield error types.
//
// These error types are shared by the tree, scanner, selection, builder and
// prover packages. Every failure a caller can act on surfaces as one of the
// structs below (match with errors.As) or as one of the sentinel values
// (match with errors.Is). None of them are swallowed internally.
package shield

import (
	"errors"
	"fmt"
)

// DecodeError is returned when hex, a tree, a witness, a transaction or an
// encoded key cannot be decoded.
type DecodeError struct {
	Code    string // Error code (e.g., ErrInvalidHex, ErrMalformedTree)
	Message string // Human-readable error message
	Cause   error  // Underlying error (if any)
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("decode error [%s]: %s", e.Code, e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// DerivationError is returned when key or address derivation fails.
//
// Common causes: a hardened account index, an exhausted diversifier space or a
// spending key that reduces to zero.
type DerivationError struct {
	Code    string // Error code (e.g., ErrInvalidAccount)
	Message string // Human-readable error message
	Cause   error  // Underlying error (if any)
}

func (e *DerivationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("derivation error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("derivation error [%s]: %s", e.Code, e.Message)
}

func (e *DerivationError) Unwrap() error { return e.Cause }

// InsufficientBalanceError is returned when coin selection cannot cover the
// requested amount plus fee, even after the underfunded-amount policy.
type InsufficientBalanceError struct {
	Available uint64 // Sum of every candidate input
	Amount    uint64 // Requested amount
	Fee       uint64 // Fee for the full candidate set
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d + %d fee", e.Available, e.Amount, e.Fee)
}

// AnchorMismatchError is returned when notes selected for one transaction
// were witnessed against different tree roots.
type AnchorMismatchError struct {
	Expected string // Anchor of the first selected note (hex)
	Got      string // Diverging anchor (hex)
	Index    int    // Index of the diverging note in the selection
}

func (e *AnchorMismatchError) Error() string {
	return fmt.Sprintf("anchor mismatch at note %d: expected %s, got %s", e.Index, e.Expected, e.Got)
}

// ProverError is returned when parameters cannot be loaded or when proof or
// signature construction fails.
type ProverError struct {
	Code    string // Error code (e.g., ErrProofCreationFailed)
	Message string // Human-readable error message
	Cause   error  // Underlying error (if any)
}

func (e *ProverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("prover error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("prover error [%s]: %s", e.Code, e.Message)
}

func (e *ProverError) Unwrap() error { return e.Cause }

// Error codes used throughout the wallet core.
//
// These codes provide structured error identification for programmatic handling.
const (
	ErrInvalidHex        = "INVALID_HEX"        // Input is not valid hex
	ErrMalformedTree     = "MALFORMED_TREE"     // Commitment tree bytes are malformed
	ErrMalformedWitness  = "MALFORMED_WITNESS"  // Witness bytes are malformed
	ErrMalformedTx       = "MALFORMED_TX"       // Transaction bytes are malformed
	ErrUnsupportedTx     = "UNSUPPORTED_TX"     // Transaction version or type is not supported
	ErrInvalidAddress    = "INVALID_ADDRESS"    // Address checksum, prefix or payload is invalid
	ErrInvalidKey        = "INVALID_KEY"        // Key encoding is invalid
	ErrMalformedNote     = "MALFORMED_NOTE"     // Note encoding is invalid
	ErrTrailingBytes     = "TRAILING_BYTES"     // Input has bytes after the encoded value
	ErrInvalidAccount    = "INVALID_ACCOUNT"    // Account index is hardened or out of range
	ErrDiversifierSpace  = "DIVERSIFIER_SPACE"  // Diversifier index space is exhausted
	ErrZeroScalar        = "ZERO_SCALAR"        // Derived scalar is zero
	ErrParamsFetch       = "PARAMS_FETCH"       // Prover parameters could not be fetched
	ErrParamsChecksum    = "PARAMS_CHECKSUM"    // Prover parameters failed checksum verification
	ErrParamsInvalid     = "PARAMS_INVALID"     // Prover parameters could not be decoded
	ErrProofCreation     = "PROOF_CREATION"     // Zero-knowledge proof generation failed
	ErrSigning           = "SIGNING"            // Signature construction failed
	ErrInvalidRequest    = "INVALID_REQUEST"    // Build request is inconsistent
	ErrValueBalance      = "VALUE_BALANCE"      // Inputs and outputs do not balance
	ErrEmptyWitnessTree  = "EMPTY_WITNESS_TREE" // Witness is backed by an empty tree
	ErrProofVerification = "PROOF_VERIFICATION" // Proof did not verify against its public inputs
)

// Sentinel errors for caller contract violations.
var (
	// ErrMixedInputs is returned when both notes and UTXOs are supplied.
	ErrMixedInputs = errors.New("cannot spend notes and utxos in the same transaction")

	// ErrNoInputs is returned when neither notes nor UTXOs are supplied.
	ErrNoInputs = errors.New("no inputs supplied")

	// ErrTreeFull is returned when appending to a complete tree.
	ErrTreeFull = errors.New("commitment tree is full")

	// ErrEmptyTree is returned when a path is requested from an empty tree.
	ErrEmptyTree = errors.New("commitment tree is empty")

	// ErrBlockOrder is returned when blocks are not strictly increasing in height.
	ErrBlockOrder = errors.New("blocks must be provided in strictly increasing height order")

	// ErrUnknownTransaction is returned when finalizing or discarding a txid
	// that has no pending entry.
	ErrUnknownTransaction = errors.New("unknown pending transaction")

	// ErrNoSpendingKey is returned when a view-only wallet is asked to build.
	ErrNoSpendingKey = errors.New("wallet has no spending key")

	// ErrAmountRange is returned for amounts above the money supply.
	ErrAmountRange = errors.New("amount exceeds the maximum money supply")
)

// Decode builds a *DecodeError.
func Decode(code, message string, cause error) error {
	return &DecodeError{Code: code, Message: message, Cause: cause}
}

// Derivation builds a *DerivationError.
func Derivation(code, message string, cause error) error {
	return &DerivationError{Code: code, Message: message, Cause: cause}
}

// Prover builds a *ProverError.
func Prover(code, message string, cause error) error {
	return &ProverError{Code: code, Message: message, Cause: cause}
}
