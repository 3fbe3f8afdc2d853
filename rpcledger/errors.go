// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcledger

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/ava-labs/tokenmeta/chain"
)

// Transaction errors that mean the state moved under the submission.
var conflicts = map[string]struct{}{
	"AccountInUse":       {},
	"AccountLoadedTwice": {},
	"BlockhashNotFound":  {},
	"AlreadyProcessed":   {},
}

// rejection maps a preflight failure onto a chain.SubmissionError.
func rejection(ops []chain.Operation, rerr *jsonrpc.RPCError) error {
	index, reason, conflict := -1, rerr.Message, false
	if data, ok := rerr.Data.(map[string]interface{}); ok {
		if txErr, ok := data["err"]; ok && txErr != nil {
			var detail string
			index, detail, conflict = parseTransactionError(txErr)
			reason = fmt.Sprintf("%s: %s", rerr.Message, detail)
		}
	}
	return newSubmissionError(ops, index, reason, conflict)
}

// parseTransactionError reads a TransactionError as the cluster encodes
// it: a bare string or {"InstructionError": [index, detail]}.
func parseTransactionError(v interface{}) (int, string, bool) {
	switch e := v.(type) {
	case string:
		_, conflict := conflicts[e]
		return -1, e, conflict
	case map[string]interface{}:
		if ie, ok := e["InstructionError"].([]interface{}); ok && len(ie) == 2 {
			index := -1
			if f, ok := ie[0].(float64); ok {
				index = int(f)
			}
			return index, describe(ie[1]), false
		}
		for k := range e {
			_, conflict := conflicts[k]
			return -1, describe(e), conflict
		}
	}
	return -1, describe(v), false
}

func describe(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func newSubmissionError(ops []chain.Operation, index int, reason string, conflict bool) *chain.SubmissionError {
	e := &chain.SubmissionError{Index: index, Reason: reason, Conflict: conflict}
	if index >= 0 && index < len(ops) {
		e.Op = ops[index].Kind()
	} else {
		e.Index = -1
	}
	return e
}
