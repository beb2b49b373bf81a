package models

// OperationStatus is the phase of the most recent view-state operation.
type OperationStatus string

const (
	StatusIdle    OperationStatus = "idle"
	StatusLoading OperationStatus = "loading"
	StatusSuccess OperationStatus = "success"
	StatusError   OperationStatus = "error"
)

// OperationState is Idle, Loading, Success or Error(Message).
type OperationState struct {
	Status  OperationStatus `json:"status"`
	Message string          `json:"message,omitempty"`
}

func Idle() OperationState    { return OperationState{Status: StatusIdle} }
func Loading() OperationState { return OperationState{Status: StatusLoading} }
func Success() OperationState { return OperationState{Status: StatusSuccess} }

func Failed(message string) OperationState {
	return OperationState{Status: StatusError, Message: message}
}
