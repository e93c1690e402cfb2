package main

import (
	"flag"
	"log"

	"audience/config"
	"audience/server"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to yaml config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var app server.App
	if err := app.Initialize(cfg); err != nil {
		log.Fatalf("init: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}
