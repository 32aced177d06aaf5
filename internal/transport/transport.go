package transport

import "context"

// Router is the dispatcher surface a transport drives. Both methods return
// the ordered outbound messages for one inbound item.
type Router interface {
	HandleCommand(ctx context.Context, userID, command, args string) []string
	HandleMessage(ctx context.Context, userID, text string, event map[string]string) []string
}

// Transport connects one bot instance to its chat surface. Run blocks until
// the context is cancelled or the connection fails.
type Transport interface {
	Run(ctx context.Context) error
}
