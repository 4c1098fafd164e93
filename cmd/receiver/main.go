package main

import (
	"fmt"
	"log"
	"net/http"

	"example.com/sttpipeline/internal/app"
	"example.com/sttpipeline/internal/config"
	"example.com/sttpipeline/internal/server"
	"example.com/sttpipeline/internal/steplog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("app: %v", err)
	}

	srv := server.New(a.Dispatcher(), a.Ledger)
	a.Log.Log(steplog.Receiver, "システム起動", fmt.Sprintf("Port:%d / JST", cfg.Port))
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), srv.Handler()))
}
