// Command sheetcheck verifies that the configured service account can see
// and write to the booking spreadsheet. With -ledger it lists the bookings
// saved in the local ledger instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/staybot/booking"
	"github.com/room4-2/staybot/config"
	"github.com/room4-2/staybot/ledger"
	"github.com/room4-2/staybot/logging"
	"github.com/room4-2/staybot/sheets"
)

func main() {
	write := flag.Bool("write", false, "append a probe row to the first tab")
	dump := flag.Bool("ledger", false, "list the rows saved in the local ledger instead")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(false, "warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if *dump {
		if err := dumpLedger(cfg.Ledger.Path, logger); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gateway := sheets.NewGateway(sheets.Config{
		SheetName:       cfg.Sheets.SheetName,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		WritesPerMinute: cfg.Sheets.WritesPerMinute,
	}, logger)

	d, err := gateway.Diagnose(ctx)
	if d.ServiceAccount != "" {
		fmt.Printf("🔑 Service account: %s\n", d.ServiceAccount)
	}
	if d.Visible != nil || d.ServiceAccount != "" {
		fmt.Printf("📄 Spreadsheets visible (%d):\n", len(d.Visible))
		for _, name := range d.Visible {
			fmt.Printf("   - %s\n", name)
		}
	}
	if err != nil {
		if sheets.IsNotShared(err) {
			fmt.Printf("❌ %q is not visible. Share it with %s as Editor.\n", cfg.Sheets.SheetName, d.ServiceAccount)
		} else {
			fmt.Printf("❌ %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Printf("✅ %q found (id %s), first tab %q\n", cfg.Sheets.SheetName, d.SpreadsheetID, d.FirstSheet)

	if !*write {
		return
	}
	probe := booking.Record{
		GuestName: "sheetcheck probe",
		Phone:     "0000000000",
		CheckIn:   time.Now().Format("2006-01-02"),
		CheckOut:  time.Now().Format("2006-01-02"),
		Beds:      1,
	}
	ref, err := gateway.AppendRow(ctx, probe.Row())
	if err != nil {
		fmt.Printf("❌ write failed: %s\n", booking.SpokenMessage(err))
		fmt.Printf("   %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ probe row written at %s. Delete it before going live.\n", ref)
}

func dumpLedger(path string, logger *zap.Logger) error {
	g := ledger.NewGateway(path, logger)
	defer g.Close()

	rows, err := g.Rows()
	if err != nil {
		return err
	}
	fmt.Printf("📒 %s: %d booking(s)\n", path, len(rows))
	for _, r := range rows {
		fmt.Printf("   #%d %s %v\n", r.Seq, r.AppendedAt.Format(time.RFC3339), r.Columns)
	}
	return nil
}
