package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("env file load failed: ", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatal("server init failed: ", err)
	}

	if err := srv.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
