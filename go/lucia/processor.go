// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package lucia

//go:generate mockgen -source processor.go -destination processor_mock.go -package lucia

// Processor is the component running a full transaction on top of an
// Interpreter: validation, fee handling and the outermost call frame.
type Processor interface {
	// Run executes the transaction provided by the parameters in the specified context.
	Run(BlockParameters, Transaction, TransactionContext) (Receipt, error)
}

type Transaction struct {
	Sender    Address  // the sender of the transaction, paying for its execution
	Recipient *Address // the receiver of a transaction, nil if a new contract is to be created
	Nonce     uint64   // the nonce of the sender account, used to prevent replay attacks
	Input     Data     // the input data for the transaction
	Value     Value    // the amount of network currency to transfer to the recipient
	GasLimit  Gas      // the maximum amount of gas that can be used by the transaction
	GasPrice  Value    // the price of a unit of gas for this transaction
}

type Receipt struct {
	Success         bool     // false if the execution ended in a revert, true otherwise
	Output          Data     // the output produced by the transaction
	ContractAddress *Address // filled if a contract was created by this transaction
	GasUsed         Gas      // gas used by the transaction, refunds deducted
	Logs            []Log    // logs produced by the transaction
}

// ErrInvalidTransaction is reported by processors for transactions which
// can not be included in a block at all. No state change may be derived
// from such a transaction.
const ErrInvalidTransaction = ConstError("invalid transaction")
