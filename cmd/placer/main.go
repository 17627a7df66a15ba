// Command placer picks positions for new space stations in star systems
// loaded from JSON or YAML files.
package main

import (
	"context"
	"os"

	"github.com/signalsfoundry/station-placer/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.NewFromEnv().Error(context.Background(), "placer failed", logging.Err(err))
		os.Exit(1)
	}
}
