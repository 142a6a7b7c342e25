// Package executor runs validated requests over the network, choosing
// between a direct and an isolated execution strategy per request.
package executor

import (
	"context"

	"github.com/reqprobe/reqprobe/packages/request"
)

// Strategy executes one request and always returns a complete outcome;
// transport failures are folded into the outcome, never returned as errors.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, req *request.Request) *request.Outcome
}

// Selector maps a request to a strategy. Strategy instances are built once
// and reused; selection itself is a pure function of the request shape.
type Selector struct {
	direct   Strategy
	isolated Strategy
}

// NewSelector builds a selector over the two given strategies.
func NewSelector(direct, isolated Strategy) *Selector {
	return &Selector{direct: direct, isolated: isolated}
}

// Select returns the strategy for a request: GET and POST go direct unless
// flagged cross-origin; every other method runs isolated.
func (s *Selector) Select(req *request.Request) Strategy {
	if req.CrossOrigin {
		return s.isolated
	}
	switch req.Method {
	case "GET", "POST":
		return s.direct
	default:
		return s.isolated
	}
}
