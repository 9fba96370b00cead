package slipstream

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// Main is the process entry point behind cmd/slipstream: it parses args,
// builds the root logger and runs the selected command until ctx ends.
func Main(ctx context.Context, args []string) error {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cmd, config, err := Parse(args)
	if err != nil {
		return err
	}
	return Run(ctx, cmd, config, log)
}
