// Command replaystats summarizes archived games with DuckDB.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brensch/halite3/store"
)

func main() {
	roots := flag.String("roots", getEnvOrDefault("HLT_RECORD_DIR", "games"), "Comma-separated archive directories")
	asJSON := flag.Bool("json", false, "Print JSON instead of a table")
	timeout := flag.Duration("timeout", 2*time.Minute, "Query timeout")
	index := flag.String("index", os.Getenv("HLT_RECORD_INDEX"), "List games from this sqlite index instead of scanning archives")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *index != "" {
		if err := listIndex(ctx, os.Stdout, *index); err != nil {
			log.Fatalf("Failed to list index: %v", err)
		}
		return
	}

	start := time.Now()
	games, err := store.Summarize(ctx, strings.Split(*roots, ","))
	if err != nil {
		log.Fatalf("Failed to summarize archives: %v", err)
	}
	log.Printf("Summarized %d games in %v", len(games), time.Since(start).Round(time.Millisecond))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(games); err != nil {
			log.Fatalf("Failed to encode: %v", err)
		}
		return
	}
	if err := writeTable(os.Stdout, games); err != nil {
		log.Fatalf("Failed to write table: %v", err)
	}
}

func writeTable(w io.Writer, games []store.GameSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tMAP\tTURNS\tPLACE\tBALANCE\tUNITS")
	wins, total := 0, int64(0)
	for _, g := range games {
		fmt.Fprintf(tw, "%s\t%dx%d\t%d\t%d/%d\t%d\t%d\n", g.GameID, g.Width, g.Height, g.Turns, g.Place, g.Players, g.Balance, g.Units)
		if g.Place == 1 {
			wins++
		}
		total += g.Balance
	}
	if len(games) > 0 {
		fmt.Fprintf(tw, "\nwins %d/%d\tmean balance %d\n", wins, len(games), total/int64(len(games)))
	}
	return tw.Flush()
}

func listIndex(ctx context.Context, w io.Writer, path string) error {
	ix, err := store.OpenIndex(path)
	if err != nil {
		return err
	}
	defer ix.Close()
	entries, err := ix.List(ctx)
	if err != nil {
		return err
	}
	return writeIndexTable(w, entries)
}

func writeIndexTable(w io.Writer, entries []store.IndexEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tRECORDED\tMAP\tTURNS\tBALANCE\tUNITS\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%d\t%d\t%s\n", e.GameID, e.Recorded.Format(time.DateTime), e.Width, e.Height, e.Turns, e.Balance, e.Units, e.Path)
	}
	return tw.Flush()
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
