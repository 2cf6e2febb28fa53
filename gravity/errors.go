package gravity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidClaim      = errors.New("invalid claim")
	ErrNonceGap          = errors.New("non contiguous event nonce")
	ErrUnauthorized      = errors.New("orchestrator is not bound to a validator")
	ErrInvalidSignature  = errors.New("invalid claim signature")
	ErrResetUnauthorized = errors.New("bridge reset is not authorized by governance")
	ErrInvalidResetNonce = errors.New("invalid bridge reset nonce")
	ErrUnknownDenom      = errors.New("unknown denom")
)

// Result codes reported in transaction receipts and query errors.
const (
	CodeOK uint32 = iota
	CodeInternal
	CodeInvalidClaim
	CodeNonceGap
	CodeUnauthorized
	CodeInvalidSignature
	CodeResetUnauthorized
	CodeInvalidResetNonce
	CodeUnknownDenom
)

var codeErrors = map[uint32]error{
	CodeInvalidClaim:      ErrInvalidClaim,
	CodeNonceGap:          ErrNonceGap,
	CodeUnauthorized:      ErrUnauthorized,
	CodeInvalidSignature:  ErrInvalidSignature,
	CodeResetUnauthorized: ErrResetUnauthorized,
	CodeInvalidResetNonce: ErrInvalidResetNonce,
	CodeUnknownDenom:      ErrUnknownDenom,
}

func CodeFromError(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for code, target := range codeErrors {
		if errors.Is(err, target) {
			return code
		}
	}
	return CodeInternal
}

// ErrorFromCode restores the error reported by a receipt, wrapping the matching sentinel.
func ErrorFromCode(code uint32, log string) error {
	if code == CodeOK {
		return nil
	}
	if target, ok := codeErrors[code]; ok {
		return &receiptError{target: target, log: log}
	}
	return fmt.Errorf("transaction failed with code %d: %s", code, log)
}

type receiptError struct {
	target error
	log    string
}

func (e *receiptError) Error() string {
	if e.log == "" {
		return e.target.Error()
	}
	return e.log
}

func (e *receiptError) Unwrap() error {
	return e.target
}
