package app

// Operation status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks a CLI operation that may mutate the vault.
// Operations are created in memory with ID=0. Only vault-mutating commands
// persist them (giving them an auto-increment ID from the database).
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
}

// NewOperation creates a new in-memory operation.
func NewOperation(operation, parameters string) *Operation {
	return &Operation{
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as having ended in error.
func (op *Operation) Fail() {
	op.Status = StatusError
}
