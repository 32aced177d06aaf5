package domain

// FunctionDescriptor is static metadata about a loaded function.
// It is built once at load time and never changes afterwards.
type FunctionDescriptor struct {
	Name         string
	DisplayName  string
	SlashCommand string
	Description  string
	HelpText     string
}
