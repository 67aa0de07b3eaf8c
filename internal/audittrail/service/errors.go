package service

import (
	dErrors "chainaudit/pkg/domain-errors"
)

// Errors returned by Factomize before any entry is built. They match with
// errors.Is regardless of message or wrapped cause.
var (
	ErrInvalidHTTPMethod       = dErrors.New(dErrors.CodeInvalidHTTPMethod, "invalid http method")
	ErrInvalidModel            = dErrors.New(dErrors.CodeInvalidModel, "invalid model")
	ErrIdentityModelFKNotValid = dErrors.New(dErrors.CodeIdentityModelFKNotValid, "identity model foreign key is not valid")
	ErrInvalidCurrentModelID   = dErrors.New(dErrors.CodeInvalidCurrentModelID, "current model id is required")
	ErrInvalidIdentityModelFK  = dErrors.New(dErrors.CodeInvalidIdentityModelFK, "identity model foreign key is missing or unsupported")
)

// Errors produced while building an entry. Under FailurePolicyLog they only
// reach the caller through Outcome.Err.
var (
	ErrOwnerNotFound       = dErrors.New(dErrors.CodeOwnerNotFound, "owner not found")
	ErrMissingIdentity     = dErrors.New(dErrors.CodeMissingIdentity, "owner has no identity")
	ErrIdentityNotFound    = dErrors.New(dErrors.CodeIdentityNotFound, "identity not found")
	ErrMissingAuditChain   = dErrors.New(dErrors.CodeMissingAuditChain, "identity has no audit chain")
	ErrAmbiguousAuditChain = dErrors.New(dErrors.CodeAmbiguousAuditChain, "identity has more than one audit chain")
	ErrMissingKeyPair      = dErrors.New(dErrors.CodeMissingKeyPair, "identity has no signing key pair")
	ErrLedgerAppendFailed  = dErrors.New(dErrors.CodeLedgerAppendFailed, "ledger append failed")
	ErrQueueFull           = dErrors.New(dErrors.CodeQueueFull, "entry queue is full")
)
