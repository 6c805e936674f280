package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/quantumchildren/propsim/collector"
)

func main() {
	addr := flag.String("addr", ":8088", "listen address")
	dbPath := flag.String("db", "./collector.sqlite", "sqlite database path")
	adminKey := flag.String("admin-key", os.Getenv("COLLECTOR_ADMIN_KEY"), "key guarding the report endpoints")
	flag.Parse()

	store, err := collector.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	srv := collector.NewServer(store, *adminKey, log.Default())
	log.Printf("collection server listening on %s (db %s)", *addr, *dbPath)
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
