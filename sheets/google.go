package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const spreadsheetMIME = "application/vnd.google-apps.spreadsheet"

// backend is the slice of the Sheets and Drive APIs the gateway needs.
type backend interface {
	ServiceAccount() string
	FindSpreadsheet(ctx context.Context, name string) (string, error)
	ListSpreadsheets(ctx context.Context) ([]string, error)
	FirstSheetTitle(ctx context.Context, spreadsheetID string) (string, error)
	Append(ctx context.Context, spreadsheetID, writeRange string, row []any) (string, error)
}

type googleBackend struct {
	email  string
	sheets *sheetsapi.Service
	drive  *drive.Service
}

// connectGoogle builds API clients from a service account key file.
func connectGoogle(ctx context.Context, credentialsFile string) (backend, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials %s: %w", credentialsFile, err)
	}

	conf, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", credentialsFile, err)
	}
	// The HTTP client outlives the call that created it.
	client := conf.Client(context.WithoutCancel(ctx))

	sheetsSvc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &googleBackend{email: conf.Email, sheets: sheetsSvc, drive: driveSvc}, nil
}

func (b *googleBackend) ServiceAccount() string { return b.email }

func (b *googleBackend) FindSpreadsheet(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMIME)
	list, err := b.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list files: %w", err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%q: %w", name, ErrSpreadsheetNotFound)
	}
	return list.Files[0].Id, nil
}

func (b *googleBackend) ListSpreadsheets(ctx context.Context) ([]string, error) {
	var names []string
	call := b.drive.Files.List().
		Q(fmt.Sprintf("mimeType = '%s' and trashed = false", spreadsheetMIME)).
		Fields("nextPageToken, files(name)").
		PageSize(100).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)
	err := call.Pages(ctx, func(list *drive.FileList) error {
		for _, f := range list.Files {
			names = append(names, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list spreadsheets: %w", err)
	}
	return names, nil
}

func (b *googleBackend) FirstSheetTitle(ctx context.Context, spreadsheetID string) (string, error) {
	ss, err := b.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet: %w", err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no tabs: %w", spreadsheetID, ErrSpreadsheetNotFound)
	}
	return ss.Sheets[0].Properties.Title, nil
}

// Append writes the row as RAW so dates, phone numbers and names are stored
// exactly as spoken and never parsed as numbers or formulas.
func (b *googleBackend) Append(ctx context.Context, spreadsheetID, writeRange string, row []any) (string, error) {
	resp, err := b.sheets.Spreadsheets.Values.Append(spreadsheetID, writeRange, &sheetsapi.ValueRange{
		Values: [][]interface{}{row},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append values: %w", err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return resp.TableRange, nil
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// a1Range addresses a whole tab, quoting the title.
func a1Range(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
