package mcpserver

import (
	"fmt"
	"log"
)

// ApprovalPolicy decides whether a destructive tool call may run. A stdio
// server has no UI to ask, so the decision is made when the server starts.
type ApprovalPolicy struct {
	allow bool
}

func NewApprovalPolicy(allowDestructive bool) *ApprovalPolicy {
	return &ApprovalPolicy{allow: allowDestructive}
}

// Request reports whether tool may perform the described action.
func (p *ApprovalPolicy) Request(tool, description string) (bool, error) {
	if !p.allow {
		log.Printf("[MCP] refused %s: %s", tool, description)
		return false, fmt.Errorf("%s is disabled; restart the server with --allow-destructive", tool)
	}
	log.Printf("[MCP] %s: %s", tool, description)
	return true, nil
}
