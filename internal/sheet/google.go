package sheet

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	valueInputRaw  = "RAW"
	insertRowsMode = "INSERT_ROWS"
)

// Credentials holds a service-account key, inline or as a file path.
type Credentials struct {
	JSON string `mapstructure:"credentials_json"`
	File string `mapstructure:"credentials_file"`
}

// NewService creates a Sheets service authorised with creds. Extra options
// are applied last, which lets tests point the client at a local endpoint.
func NewService(ctx context.Context, creds Credentials, extra ...option.ClientOption) (*sheets.Service, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case creds.JSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(creds.JSON)))
	case creds.File != "":
		opts = append(opts, option.WithCredentialsFile(creds.File))
	case len(extra) == 0:
		return nil, errors.New("sheets: credentials required")
	}
	opts = append(opts, extra...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return svc, nil
}

// GoogleValues adapts the Sheets v4 values service to ValuesAPI.
type GoogleValues struct {
	values *sheets.SpreadsheetsValuesService
}

var _ ValuesAPI = (*GoogleValues)(nil)

// NewGoogleValues wraps svc.
func NewGoogleValues(svc *sheets.Service) *GoogleValues {
	return &GoogleValues{values: svc.Spreadsheets.Values}
}

func (g *GoogleValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	resp, err := g.values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				out[i][j] = fmt.Sprint(v)
			}
		}
	}
	return out, nil
}

func (g *GoogleValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]string) error {
	_, err := g.values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: toCells(values)}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	return err
}

func (g *GoogleValues) BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange) error {
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInputRaw,
		Data:             make([]*sheets.ValueRange, 0, len(data)),
	}
	for _, d := range data {
		req.Data = append(req.Data, &sheets.ValueRange{Range: d.Range, Values: toCells(d.Values)})
	}
	_, err := g.values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}

func (g *GoogleValues) Append(ctx context.Context, spreadsheetID, rng string, values [][]string) error {
	_, err := g.values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: toCells(values)}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRowsMode).
		Context(ctx).
		Do()
	return err
}

func toCells(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		out[i] = make([]interface{}, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}
