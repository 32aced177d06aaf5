package domain

// ResultKind classifies the outcome of a handled message.
type ResultKind string

const (
	ResultSuccess  ResultKind = "success"
	ResultError    ResultKind = "error"
	ResultNoAction ResultKind = "no_action"
)

// Response is what a function returns for a single inbound message.
// Messages are delivered to the user in order, one transport message each.
type Response struct {
	Result   ResultKind
	Messages []string
	Error    string
	Metadata map[string]any
}
