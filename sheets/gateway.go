// Package sheets appends booking rows to the first tab of a Google Sheet
// found by name.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/room4-2/staybot/booking"
)

// Config configures a Gateway.
type Config struct {
	SheetName       string
	CredentialsFile string
	WritesPerMinute int
}

// Gateway implements booking.Gateway on top of Google Sheets. The API
// clients are created on first use; a failed attempt is retried on the next
// call.
type Gateway struct {
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter
	connect func(ctx context.Context) (backend, error)

	mu            sync.Mutex
	backend       backend
	spreadsheetID string
	sheetTitle    string
}

var _ booking.Gateway = (*Gateway)(nil)

// NewGateway creates a gateway. It does not touch the network.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	perMinute := cfg.WritesPerMinute
	if perMinute < 1 {
		perMinute = 60
	}
	g := &Gateway{
		cfg:     cfg,
		logger:  logger.With(zap.String("sheet", cfg.SheetName)),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
	g.connect = func(ctx context.Context) (backend, error) {
		return connectGoogle(ctx, cfg.CredentialsFile)
	}
	return g
}

// AppendRow appends one row to the first tab and returns the updated range.
func (g *Gateway) AppendRow(ctx context.Context, columns []any) (booking.RowReference, error) {
	b, id, title, err := g.target(ctx)
	if err != nil {
		return "", err
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", booking.NewPersistenceError(booking.TransientFailure, "wait for write quota", err)
	}

	updated, err := b.Append(ctx, id, a1Range(title), columns)
	if err != nil {
		perr := classify("append row", err)
		if perr.Kind == booking.TargetNotFound {
			g.forgetTarget()
		}
		return "", perr
	}

	g.logger.Debug("row appended", zap.String("range", updated))
	return booking.RowReference(updated), nil
}

// target returns the connected backend and the cached destination,
// resolving whatever is missing.
func (g *Gateway) target(ctx context.Context) (backend, string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.backend == nil {
		b, err := g.connect(ctx)
		if err != nil {
			g.logger.Error("❌ sheets client unavailable", zap.Error(err))
			return nil, "", "", booking.NewPersistenceError(booking.AuthenticationFailure, "load credentials", err)
		}
		g.backend = b
		g.logger.Info("✅ sheets client ready", zap.String("service_account", b.ServiceAccount()))
	}

	if g.spreadsheetID == "" {
		id, err := g.backend.FindSpreadsheet(ctx, g.cfg.SheetName)
		if err != nil {
			return nil, "", "", classify("find spreadsheet", err)
		}
		title, err := g.backend.FirstSheetTitle(ctx, id)
		if err != nil {
			return nil, "", "", classify("read first tab", err)
		}
		g.spreadsheetID, g.sheetTitle = id, title
		g.logger.Info("spreadsheet resolved", zap.String("id", id), zap.String("tab", title))
	}

	return g.backend, g.spreadsheetID, g.sheetTitle, nil
}

func (g *Gateway) forgetTarget() {
	g.mu.Lock()
	g.spreadsheetID, g.sheetTitle = "", ""
	g.mu.Unlock()
}

// Diagnosis is what Diagnose found out about the credentials and the target.
type Diagnosis struct {
	ServiceAccount string
	Visible        []string
	TargetVisible  bool
	SpreadsheetID  string
	FirstSheet     string
}

// Diagnose checks that the credentials load, lists the spreadsheets the
// service account can see and resolves the target without writing to it.
func (g *Gateway) Diagnose(ctx context.Context) (Diagnosis, error) {
	var d Diagnosis

	g.mu.Lock()
	if g.backend == nil {
		b, err := g.connect(ctx)
		if err != nil {
			g.mu.Unlock()
			return d, booking.NewPersistenceError(booking.AuthenticationFailure, "load credentials", err)
		}
		g.backend = b
	}
	b := g.backend
	g.mu.Unlock()

	d.ServiceAccount = b.ServiceAccount()

	visible, err := b.ListSpreadsheets(ctx)
	if err != nil {
		return d, classify("list spreadsheets", err)
	}
	d.Visible = visible
	for _, name := range visible {
		if name == g.cfg.SheetName {
			d.TargetVisible = true
			break
		}
	}
	if !d.TargetVisible {
		return d, classify("find spreadsheet", fmt.Errorf("%q: %w", g.cfg.SheetName, ErrSpreadsheetNotFound))
	}

	_, id, title, err := g.target(ctx)
	if err != nil {
		return d, err
	}
	d.SpreadsheetID, d.FirstSheet = id, title
	return d, nil
}

// IsNotShared reports whether err means the spreadsheet is missing or not
// shared with the service account.
func IsNotShared(err error) bool {
	var perr *booking.PersistenceError
	return errors.As(err, &perr) && perr.Kind == booking.TargetNotFound
}
