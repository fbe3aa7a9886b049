// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/racket_tracker/internal/app"
	"github.com/relabs-tech/racket_tracker/internal/config"
)

func main() {
	configPath := flag.String("config", "./racket_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting racket-tracker MQTT producer (mock)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMockProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
