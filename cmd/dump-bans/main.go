package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"autopvp/internal/denylist"
)

func main() {
	dbPath := flag.String("db", "data/autopvp.db", "Path to SQLite database")
	add := flag.String("add", "", "Ban this uid instead of listing")
	reason := flag.String("reason", "", "Reason stored with -add")
	flag.Parse()

	if *add == "" {
		if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
			logrus.Fatalf("Database not found at %s", *dbPath)
		}
	}

	store, err := denylist.Open(*dbPath)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *add != "" {
		added, err := store.Add(ctx, *add, *reason)
		if err != nil {
			logrus.Fatalf("Failed to ban %s: %v", *add, err)
		}
		if added {
			fmt.Printf("Banned %s\n", *add)
		} else {
			fmt.Printf("%s is already banned\n", *add)
		}
		return
	}

	if err := dump(ctx, os.Stdout, store); err != nil {
		logrus.Fatalf("Failed to list bans: %v", err)
	}
}

func dump(ctx context.Context, w io.Writer, store *denylist.Store) error {
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		reason := e.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.UID, e.CreatedAt.Local().Format(time.RFC822), reason)
	}
	fmt.Fprintf(w, "Total bans found: %d\n", len(entries))
	return nil
}
