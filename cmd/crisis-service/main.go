package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mycelian/mycelian-crisis/crisisservice"
)

func main() {
	if err := crisisservice.Run(); err != nil {
		log.Error().Err(err).Msg("crisis-service exited with error")
		os.Exit(1)
	}
}
