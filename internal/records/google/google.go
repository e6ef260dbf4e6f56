package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"sfms/internal/core"
	"sfms/internal/records"
)

// Default tab names inside the spreadsheet.
const (
	DefaultCategoriesSheet = "ReliefCategories"
	DefaultDebtsSheet      = "Debts"
	DefaultClaimsSheet     = "TaxClaims"
	DefaultUsersSheet      = "Users"
)

type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string

	CategoriesSheet string
	DebtsSheet      string
	ClaimsSheet     string
	UsersSheet      string
}

// Client reads records from a Google Sheets spreadsheet, one tab per record
// type with a header row.
type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	categoriesSheet string
	debtsSheet      string
	claimsSheet     string
	usersSheet      string
}

var _ records.Store = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:             svc,
		spreadsheetID:   cfg.SpreadsheetID,
		categoriesSheet: orDefault(cfg.CategoriesSheet, DefaultCategoriesSheet),
		debtsSheet:      orDefault(cfg.DebtsSheet, DefaultDebtsSheet),
		claimsSheet:     orDefault(cfg.ClaimsSheet, DefaultClaimsSheet),
		usersSheet:      orDefault(cfg.UsersSheet, DefaultUsersSheet),
	}, nil
}

// newSheetsService authenticates with a service account, inline JSON first.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		raw, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A:Z").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w: %v", sheet, core.ErrUpstream, err)
	}
	return resp.Values, nil
}

func (c *Client) ListReliefCategories(ctx context.Context) ([]core.TaxReliefCategory, error) {
	values, err := c.readSheet(ctx, c.categoriesSheet)
	if err != nil {
		return nil, err
	}
	cats, err := parseCategories(values)
	if err != nil {
		return nil, err
	}
	records.SortCategories(cats)
	return cats, nil
}

func (c *Client) GetTaxProfile(ctx context.Context, userID string, year int) (core.TaxProfile, error) {
	values, err := c.readSheet(ctx, c.claimsSheet)
	if err != nil {
		return core.TaxProfile{}, err
	}
	return parseTaxProfile(values, userID, year)
}

func (c *Client) ListDebts(ctx context.Context, userID string) ([]core.Debt, error) {
	values, err := c.readSheet(ctx, c.debtsSheet)
	if err != nil {
		return nil, err
	}
	return parseDebts(values, userID)
}

func (c *Client) GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error) {
	users, err := c.ListUserProfiles(ctx)
	if err != nil {
		return core.UserProfile{}, err
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return core.UserProfile{}, fmt.Errorf("user profile %s: %w", userID, core.ErrNotFound)
}

func (c *Client) ListUserProfiles(ctx context.Context) ([]core.UserProfile, error) {
	values, err := c.readSheet(ctx, c.usersSheet)
	if err != nil {
		return nil, err
	}
	return parseUsers(values)
}

// Ping fetches spreadsheet metadata only.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("ping spreadsheet: %w: %v", core.ErrUpstream, err)
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
