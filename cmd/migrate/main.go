package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ignite/leadharvest/internal/repository/sqlite"
)

func main() {
	path := os.Getenv("LEADHARVEST_DB_PATH")
	if path == "" {
		path = "users.db"
	}

	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			path = a
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sqlite.Open(ctx, path, os.Getenv("LEADHARVEST_DB_PASSWORD"))
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()
	log.Printf("Connected to database %s", path)

	if listOnly {
		tables, err := db.Tables(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, t := range tables {
			fmt.Println(" ", t)
		}
		fmt.Printf("Total: %d tables\n", len(tables))
		return
	}

	files, err := sqlite.Migrations()
	if err != nil {
		log.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}

	n, err := db.Migrate(ctx)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("Done: %d applied, %d already present", n, len(files)-n)
	log.Println("Migrations complete")
}
