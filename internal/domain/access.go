package domain

// AccessRules is the permission ruleset of one bot instance.
// Evaluation order is admin, then open function, then allow-list, then deny.
type AccessRules struct {
	Admins        []string
	OpenFunctions []string
	Allow         map[string][]string
}
