// Package store picks the booking gateway named by configuration.
package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/room4-2/staybot/booking"
	"github.com/room4-2/staybot/config"
	"github.com/room4-2/staybot/ledger"
	"github.com/room4-2/staybot/sheets"
)

// Open returns the configured gateway and a func that releases it.
func Open(cfg *config.Config, logger *zap.Logger) (booking.Gateway, func() error, error) {
	switch cfg.Booking.Gateway {
	case config.GatewaySheets:
		g := sheets.NewGateway(sheets.Config{
			SheetName:       cfg.Sheets.SheetName,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			WritesPerMinute: cfg.Sheets.WritesPerMinute,
		}, logger)
		logger.Info("📄 Bookings go to Google Sheets", zap.String("sheet", cfg.Sheets.SheetName))
		return g, func() error { return nil }, nil
	case config.GatewayLedger:
		g := ledger.NewGateway(cfg.Ledger.Path, logger)
		logger.Info("📒 Bookings go to local ledger", zap.String("path", cfg.Ledger.Path))
		return g, g.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown booking gateway %q", cfg.Booking.Gateway)
	}
}
