package model

import "github.com/m-mizutani/goerr/v2"

// Error kinds shared by collaborators, the orchestrator and the entry points.
// Callers wrap them with goerr.Wrap and classify with errors.Is.
var (
	ErrInputMissing  = goerr.New("required input is missing")
	ErrCollaborator  = goerr.New("collaborator failed")
	ErrClaimNotFound = goerr.New("claim not found")
	ErrValidation    = goerr.New("validation failed")
)
