package main

import (
	"os"

	"github.com/mattmezza/ticketwatch/internal/logging"
)

func main() {
	// Every failure is logged; the exit status stays 0 so schedulers do not
	// treat a flaky site or a missing token as a crashed job.
	if err := newRootCommand().Execute(); err != nil {
		log := logging.NewWithWriter(logging.Config{}, os.Stdout)
		log.Error().Err(err).Msg("ticketwatch stopped")
	}
}
