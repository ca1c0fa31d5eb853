package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/suPer8Hu/profile-assistant/internal/config"
	"github.com/suPer8Hu/profile-assistant/internal/db"
	"github.com/suPer8Hu/profile-assistant/internal/profile"
)

func main() {
	check := flag.Bool("check", false, "print the stored profile instead of writing it")
	flag.Parse()

	cfg := config.Load()
	gdb := db.Connect(cfg.DBDSN)
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	store := profile.NewStore(gdb)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *check {
		rec, err := store.Get(ctx, cfg.ProfileKey)
		if errors.Is(err, profile.ErrNotFound) {
			log.Printf("profile %q not seeded", cfg.ProfileKey)
			os.Exit(1)
		}
		if err != nil {
			log.Fatalf("get profile: %v", err)
		}
		out, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(out))
		return
	}

	rec, err := profile.Default()
	if err != nil {
		log.Fatalf("default profile: %v", err)
	}
	if err := store.Put(ctx, cfg.ProfileKey, rec); err != nil {
		log.Fatalf("put profile: %v", err)
	}
	log.Printf("profile %q seeded for %s", cfg.ProfileKey, rec.Basics.Name)
}
