package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aclamission/internal/config"
	"aclamission/internal/ledger"
	"aclamission/internal/logger"
	"aclamission/internal/store"
	"aclamission/models"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "load":
		runLoad(cfg, log)
	case "dedupe":
		runDedupe(cfg, log)
	case "link":
		runLink(cfg, log)
	case "import":
		runImport(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Missions ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  ledgerctl <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  load      Load all bank transactions and print a filtered view")
	fmt.Println("  dedupe    Find duplicate bank transactions and remove them")
	fmt.Println("  link      Link a transaction to a pledge or outgoing")
	fmt.Println("  import    Import a bank statement CSV")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'ledgerctl <command> -h' for more information on a command.")
}

func openStore(cfg config.Config, log zerolog.Logger) *store.Store {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	db, err := store.Open(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	return store.New(db, cfg.DBTimeout)
}

func runLoad(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	from := fs.String("from", "", "Earliest value date (YYYY-MM-DD)")
	to := fs.String("to", "", "Latest value date, inclusive (YYYY-MM-DD)")
	ref := fs.String("reference", "", "Reference contains")
	narrative := fs.String("narrative", "", "Description contains")
	sortBy := fs.String("sort", "value_date", "Sort field")
	desc := fs.Bool("desc", false, "Sort descending")
	out := fs.String("csv", "", "Write the view to this CSV file instead of stdout")
	fs.Parse(os.Args[2:])

	q := ledger.ViewQuery{Reference: *ref, Narrative: *narrative, Desc: *desc}
	var err error
	if q.From, err = models.ParseStatementDate(*from); err != nil {
		log.Fatal().Err(err).Msg("Invalid -from")
	}
	if q.To, err = models.ParseStatementDate(*to); err != nil {
		log.Fatal().Err(err).Msg("Invalid -to")
	}
	if q.SortBy, err = ledger.ParseSortField(*sortBy); err != nil {
		log.Fatal().Err(err).Msg("Invalid -sort")
	}

	st := openStore(cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	res, err := ledger.NewLoader(st, cfg.FetchBatchSize, log).Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Load failed")
	}
	rows := ledger.Filter(res.Rows, q)
	ledger.SortRows(rows, q.SortBy, q.Desc)

	if err := writeRows(*out, rows); err != nil {
		log.Fatal().Err(err).Msg("Failed to write CSV")
	}
	fmt.Fprintf(os.Stderr, "%d of %d transactions, total debit %.2f, total credit %.2f (%d pages)\n",
		len(rows), res.Totals.Count, res.Totals.TotalDebit, res.Totals.TotalCredit, res.Pages)
}

// writeRows writes rows as CSV to path, or to stdout when path is empty. The
// file is closed before it returns.
func writeRows(path string, rows []ledger.LoadedTransaction) error {
	if path == "" {
		return ledger.WriteCSV(os.Stdout, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ledger.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runDedupe(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("dedupe", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Remove without asking for confirmation")
	dryRun := fs.Bool("dry-run", false, "Only report duplicates")
	fs.Parse(os.Args[2:])

	st := openStore(cfg, log)
	ctx := logger.WithContext(context.Background(), log)
	d := ledger.NewDeduper(st, cfg.FetchBatchSize, cfg.DeleteBatchSize, nil, log)

	rep, err := d.Find(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Duplicate scan failed")
	}
	printReport(os.Stdout, rep)
	if rep.DuplicateCount == 0 || *dryRun {
		return
	}

	prompt := fmt.Sprintf("Delete %d duplicate transactions?", rep.DuplicateCount)
	if !*yes && !confirm(os.Stdin, os.Stdout, prompt) {
		fmt.Println("Nothing deleted.")
		return
	}
	res, err := d.Remove(ctx, rep.DuplicateIDs, true)
	if err != nil {
		if res != nil {
			fmt.Printf("Deleted %d of %d before the failure (%d of %d batches).\n",
				res.Deleted, res.Requested-len(res.Rejected), res.CompletedBatches, res.Batches)
		}
		log.Fatal().Err(err).Msg("Duplicate removal failed")
	}
	fmt.Printf("Deleted %d duplicate transactions in %d batches.\n", res.Deleted, res.Batches)
	if len(res.Rejected) > 0 {
		fmt.Printf("Skipped %d ids that were no longer duplicates: %s\n", len(res.Rejected), strings.Join(res.Rejected, ", "))
	}
}

func printReport(w io.Writer, rep *ledger.DuplicateReport) {
	fmt.Fprintf(w, "Scanned:     %d\n", rep.TotalScanned)
	fmt.Fprintf(w, "Eligible:    %d\n", rep.Eligible)
	fmt.Fprintf(w, "Unique keys: %d\n", rep.UniqueKeys)
	fmt.Fprintf(w, "Duplicates:  %d\n", rep.DuplicateCount)
	for _, g := range rep.Groups {
		fmt.Fprintf(w, "  %s  keep %s  remove %s\n", g.Key, g.KeptID, strings.Join(g.DuplicateIDs, ", "))
	}
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func runLink(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	txID := fs.String("tx", "", "Bank transaction ID")
	kind := fs.String("kind", "", "pledge or outgoing")
	target := fs.String("target", "", "Pledge or outgoing ID; empty or \"unlink\" clears the link")
	fs.Parse(os.Args[2:])

	if *txID == "" || *kind == "" {
		log.Fatal().Msg("Usage: ledgerctl link -tx ID -kind pledge|outgoing [-target ID]")
	}
	k, err := ledger.ParseLinkKind(*kind)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -kind")
	}

	st := openStore(cfg, log)
	ctx := logger.WithContext(context.Background(), log)
	res, err := ledger.NewLinker(st, nil, log).Link(ctx, *txID, k, *target)
	if err != nil {
		log.Fatal().Err(err).Msg("Link failed")
	}
	switch {
	case res.Unlinked:
		fmt.Printf("Unlinked %s from its %s.\n", res.TransactionID, res.Kind)
	case res.FulfillmentStatus != nil:
		fmt.Printf("Linked %s to pledge %s, fulfillment now %d%%.\n", res.TransactionID, res.TargetID, *res.FulfillmentStatus)
	case res.PaidAmount != nil:
		fmt.Printf("Linked %s to outgoing %s, paid %.2f (%s).\n", res.TransactionID, res.TargetID, *res.PaidAmount, res.PaidStatus)
	}
	if res.PreviousTargetID != "" && res.PreviousTargetID != res.TargetID && !res.Unlinked {
		fmt.Printf("Note: previously linked to %s; its total was not reduced.\n", res.PreviousTargetID)
	}
}

func runImport(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	path := fs.String("file", "", "Path to the statement CSV")
	fs.Parse(os.Args[2:])

	if *path == "" {
		log.Fatal().Msg("Error: -file is required")
	}
	f, err := os.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open file")
	}
	defer f.Close()

	rows, rowErrs, err := ledger.ParseCSV(f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse CSV")
	}
	for _, e := range rowErrs {
		log.Warn().Int("row", e.Row).Str("error", e.Message).Msg("Row skipped")
	}

	st := openStore(cfg, log)
	ctx := logger.WithContext(context.Background(), log)
	res, err := ledger.NewImporter(st, nil, log).Import(ctx, rows)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}
	fmt.Printf("Inserted %d, skipped %d of %d rows.\n", res.Inserted, res.Skipped+len(rowErrs), res.Total+len(rowErrs))
}
