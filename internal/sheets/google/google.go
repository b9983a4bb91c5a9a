package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"networth/internal/core"
	"networth/internal/log"
	ports "networth/internal/sheets"
	"networth/internal/vehicle"
)

// valuesGetter reads a range as raw cell values.
type valuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type apiGetter struct {
	svc *gsheet.Service
}

func (g apiGetter) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classifyAPIError(err)
	}
	return resp.Values, nil
}

// errSheetNotFound means the workbook has no tab with the requested name.
var errSheetNotFound = errors.New("sheet not found")

// The API reports a missing tab as a 400 on the range it cannot parse.
func classifyAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %w", errSheetNotFound, err)
	}
	return err
}

// Options selects the workbooks and sheets to read.
type Options struct {
	SpreadsheetID        string
	VehicleSpreadsheetID string // defaults to SpreadsheetID
	BalanceSheet         string
	CashflowSheet        string
	// Expected values raise soft warnings on load.
	LedgerExpected   ports.Expected
	CashflowExpected ports.Expected
	Logger           *log.Logger
}

type Client struct {
	get    valuesGetter
	opts   Options
	logger *log.Logger

	mu      sync.Mutex
	reports map[string]ports.Report
}

// Ensure interface conformance
var _ ports.Source = (*Client)(nil)

// New creates a read-only Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(apiGetter{svc: svc}, opts), nil
}

func newClient(get valuesGetter, opts Options) *Client {
	if opts.VehicleSpreadsheetID == "" {
		opts.VehicleSpreadsheetID = opts.SpreadsheetID
	}
	if opts.BalanceSheet == "" {
		opts.BalanceSheet = ports.BalanceSheet
	}
	if opts.CashflowSheet == "" {
		opts.CashflowSheet = ports.PensionCashflowsSheet
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		get:     get,
		opts:    opts,
		logger:  logger.WithComponent(log.ComponentSheets),
		reports: make(map[string]ports.Report),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	if logger == nil {
		logger = log.Nop()
	}
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func (c *Client) readSheet(ctx context.Context, spreadsheetID, sheet string) ([][]string, error) {
	// A bare sheet name selects every populated cell.
	rng := fmt.Sprintf("'%s'", strings.ReplaceAll(sheet, "'", "''"))
	values, err := c.get.Get(ctx, spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = ports.ToStrings(row)
	}
	return out, nil
}

func (c *Client) record(ctx context.Context, rep ports.Report) {
	c.mu.Lock()
	c.reports[rep.Sheet] = rep
	c.mu.Unlock()

	fields := log.NewFields().WithOperation(log.OpLoad).WithSheet(rep.Sheet, rep.Rows, rep.Dropped)
	c.logger.InfoContext(ctx, "Sheet loaded", fields.ToSlice()...)
	for _, w := range rep.Warnings {
		c.logger.WarnContext(ctx, "Sheet data warning", log.FieldSheet, rep.Sheet, "warning", w)
	}
}

// Reports returns the last load report of every sheet read so far.
func (c *Client) Reports() []ports.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ports.Report, 0, len(c.reports))
	for _, r := range c.reports {
		out = append(out, r)
	}
	return out
}

func (c *Client) ReadLedger(ctx context.Context) ([]core.Entry, error) {
	values, err := c.readSheet(ctx, c.opts.SpreadsheetID, c.opts.BalanceSheet)
	if err != nil {
		return nil, err
	}
	entries, rep, err := ports.ParseLedger(values, c.opts.LedgerExpected)
	rep.Sheet = c.opts.BalanceSheet
	c.record(ctx, rep)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) ReadCashflows(ctx context.Context) ([]core.Cashflow, error) {
	values, err := c.readSheet(ctx, c.opts.SpreadsheetID, c.opts.CashflowSheet)
	if err != nil {
		return nil, err
	}
	flows, rep, err := ports.ParseCashflows(values, c.opts.CashflowExpected)
	rep.Sheet = c.opts.CashflowSheet
	c.record(ctx, rep)
	if err != nil {
		return nil, err
	}
	return flows, nil
}

// ReadVehicles fetches the six vehicle sheets concurrently. Only a failure
// on Cars is fatal; other sheets that cannot be read are treated as empty.
// A workbook without a Cars tab has no vehicle data.
func (c *Client) ReadVehicles(ctx context.Context) (vehicle.Dataset, error) {
	names := vehicle.SheetNames()
	results := make([][][]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			values, err := c.readSheet(gctx, c.opts.VehicleSpreadsheetID, name)
			if err != nil {
				if name == vehicle.SheetCars {
					if errors.Is(err, errSheetNotFound) {
						return fmt.Errorf("%w: %w", core.ErrNoData, err)
					}
					return err
				}
				c.logger.WarnContext(ctx, "Vehicle sheet unavailable", log.FieldSheet, name, log.FieldError, err.Error())
				return nil
			}
			results[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return vehicle.Dataset{}, err
	}

	sheets := make(map[string][][]string, len(names))
	for i, name := range names {
		if results[i] != nil {
			sheets[name] = results[i]
		}
	}
	d, reports, err := ports.ParseVehicles(sheets)
	for _, rep := range reports {
		c.record(ctx, rep)
	}
	if err != nil {
		return vehicle.Dataset{}, err
	}
	return d, nil
}
