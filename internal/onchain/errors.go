package onchain

import "fmt"

// ContractError is a numbered contract failure. Two ContractErrors match
// under errors.Is when their codes are equal.
type ContractError struct {
	Code uint32
}

var (
	ErrUnauthorized           = &ContractError{Code: 401}
	ErrPoolExists             = &ContractError{Code: 402}
	ErrInvalidPool            = &ContractError{Code: 404}
	ErrInsufficientLiquidity  = &ContractError{Code: 405}
	ErrSlippageExceeded       = &ContractError{Code: 407}
	ErrExpired                = &ContractError{Code: 409}
	ErrInsufficientCollateral = &ContractError{Code: 411}
	ErrMaxUtilization         = &ContractError{Code: 412}
	ErrPriceOracleRequired    = &ContractError{Code: 413}
	ErrArithmetic             = &ContractError{Code: 500}
)

var codeNames = map[uint32]string{
	401: "unauthorized",
	402: "pool exists",
	404: "invalid pool",
	405: "insufficient liquidity",
	407: "slippage exceeded",
	409: "expired",
	411: "insufficient collateral",
	412: "max utilization reached",
	413: "price oracle required",
	500: "arithmetic failure",
}

func (e *ContractError) Error() string {
	if name, ok := codeNames[e.Code]; ok {
		return fmt.Sprintf("contract error u%d: %s", e.Code, name)
	}
	return fmt.Sprintf("contract error u%d", e.Code)
}

func (e *ContractError) Is(target error) bool {
	t, ok := target.(*ContractError)
	return ok && t.Code == e.Code
}
