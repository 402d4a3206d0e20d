package cli

import (
	"context"

	"github.com/raphaelgruber/memsynth/internal/synth"
)

// runnerFunc builds a fresh synthesizer for every pass.
type runnerFunc func() *synth.Synthesizer

func (f runnerFunc) Run(ctx context.Context, opts synth.RunOptions) (*synth.Report, error) {
	return f().Run(ctx, opts)
}
