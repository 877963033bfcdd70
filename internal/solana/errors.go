package solana

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrAccountNotFound = errors.New("solana: account not found")

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TransactionError extracts the ledger error from a preflight failure, if any.
func (e *RPCError) TransactionError() *TransactionError {
	if len(e.Data) == 0 {
		return nil
	}
	var data struct {
		Err  json.RawMessage `json:"err"`
		Logs []string        `json:"logs"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil
	}
	txErr := ParseTransactionError(data.Err)
	if txErr != nil {
		txErr.Logs = data.Logs
	}
	return txErr
}

// TransactionError is the decoded "err" value of a simulation or status.
// Examples: "InsufficientFundsForFee", {"InstructionError":[0,{"Custom":6015}]}.
type TransactionError struct {
	Raw              json.RawMessage
	Kind             string
	InstructionIndex int
	Custom           *uint32
	Logs             []string
}

// ParseTransactionError returns nil for an empty or null value.
func ParseTransactionError(raw json.RawMessage) *TransactionError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	te := &TransactionError{Raw: append(json.RawMessage(nil), raw...), InstructionIndex: -1}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		te.Kind = s
		return te
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		te.Kind = string(raw)
		return te
	}

	if ie, ok := obj["InstructionError"]; ok {
		var parts []json.RawMessage
		if err := json.Unmarshal(ie, &parts); err == nil && len(parts) == 2 {
			_ = json.Unmarshal(parts[0], &te.InstructionIndex)

			var detail string
			if err := json.Unmarshal(parts[1], &detail); err == nil {
				te.Kind = detail
				return te
			}
			var custom struct {
				Custom *uint32 `json:"Custom"`
			}
			if err := json.Unmarshal(parts[1], &custom); err == nil && custom.Custom != nil {
				te.Kind = "Custom"
				te.Custom = custom.Custom
				return te
			}
			te.Kind = string(parts[1])
			return te
		}
	}

	for k := range obj {
		te.Kind = k
		break
	}
	return te
}

// CustomCode returns the program-defined error code, if the failure carries one.
func (e *TransactionError) CustomCode() (uint32, bool) {
	if e == nil || e.Custom == nil {
		return 0, false
	}
	return *e.Custom, true
}

func (e *TransactionError) Error() string {
	switch {
	case e.Custom != nil:
		return fmt.Sprintf("instruction %d: custom program error %d", e.InstructionIndex, *e.Custom)
	case e.InstructionIndex >= 0:
		return fmt.Sprintf("instruction %d: %s", e.InstructionIndex, e.Kind)
	default:
		return e.Kind
	}
}
