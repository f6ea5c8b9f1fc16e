package controller

import "context"

// step is one request in a dependent chain
type step struct {
	name     string
	fallback string // Shown when the server fails without a message
	run      func(ctx context.Context) error
}

type stepError struct {
	step     string
	fallback string
	Err      error
}

func (e *stepError) Error() string {
	return e.step + ": " + e.Err.Error()
}

func (e *stepError) Unwrap() error {
	return e.Err
}

// runSteps runs steps in order and stops at the first failure
func runSteps(ctx context.Context, steps []step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return &stepError{step: s.name, fallback: s.fallback, Err: err}
		}
		if err := s.run(ctx); err != nil {
			return &stepError{step: s.name, fallback: s.fallback, Err: err}
		}
	}
	return nil
}
