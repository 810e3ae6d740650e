package analysis

import "context"

// Engine is one model backend able to run the incident analysis.
type Engine interface {
	Name() string
	Analyze(ctx context.Context, in Request) (Response, error)
}
