// Package ioconfig declares the validated configuration for every reader and
// writer. Each Parse function starts from the defaults (some taken from the
// global settings), decodes the merged configuration map over them and
// rejects unknown keys. Keys and rules live in the struct tags.
package ioconfig

import (
	"os"
	"strings"

	"finstatements/pkg/core/config"
	"finstatements/pkg/core/dataio/iocore"
)

// Format types.
const (
	FormatCSV             = "csv"
	FormatExcel           = "excel"
	FormatDataFrame       = "dataframe"
	FormatDict            = "dict"
	FormatFMP             = "fmp"
	FormatGraphDefinition = "graph_definition_dict"
	FormatHTML            = "html"
	FormatGraphStore      = "graph_store"
	FormatMarkdown        = "markdown"
)

// Table layouts.
const (
	LayoutLong = "long"
	LayoutWide = "wide"
)

// Statement types understood by the FMP reader and used as mapping scopes.
const (
	StatementIncome   = "income_statement"
	StatementBalance  = "balance_sheet"
	StatementCashFlow = "cash_flow"
)

// FMP period types.
const (
	PeriodAnnual    = "FY"
	PeriodQuarterly = "QTR"
)

// EnvFMPAPIKey is consulted when no API key is configured explicitly.
const EnvFMPAPIKey = "FMP_API_KEY"

// =============================================================================
// READER CONFIGS
// =============================================================================

// CSVReaderConfig configures the csv reader.
type CSVReaderConfig struct {
	Source     string `mapstructure:"source" validate:"required,notblank"`
	FormatType string `mapstructure:"format_type" validate:"oneof=csv"`
	Delimiter  string `mapstructure:"delimiter"`
	// HeaderRow is the 1-based line holding column names.
	HeaderRow     int                  `mapstructure:"header_row" validate:"min=1"`
	Layout        string               `mapstructure:"layout" validate:"oneof=long wide"`
	ItemCol       string               `mapstructure:"item_col" validate:"notblank"`
	PeriodCol     string               `mapstructure:"period_col"`
	ValueCol      string               `mapstructure:"value_col"`
	MappingConfig iocore.ScopedMapping `mapstructure:"mapping_config"`
	StatementType string               `mapstructure:"statement_type"`
}

// ParseCSVReaderConfig validates raw into a CSVReaderConfig.
func ParseCSVReaderConfig(raw map[string]any) (CSVReaderConfig, error) {
	cfg := CSVReaderConfig{
		FormatType: FormatCSV,
		Delimiter:  config.Get().IO.DefaultCSVDelimiter,
		HeaderRow:  1,
		Layout:     LayoutLong,
		ItemCol:    "item",
		PeriodCol:  "period",
		ValueCol:   "value",
	}
	d := iocore.NewFieldDecoder("CSVReaderConfig", raw)
	d.Decode(&cfg, false)

	if len([]rune(cfg.Delimiter)) != 1 {
		d.Errorf("delimiter: must be a single character, got %q", cfg.Delimiter)
	}
	if cfg.Layout == LayoutLong && (strings.TrimSpace(cfg.PeriodCol) == "" || strings.TrimSpace(cfg.ValueCol) == "") {
		d.Errorf("period_col and value_col are required for the long layout")
	}

	if err := d.Err(); err != nil {
		return CSVReaderConfig{}, err
	}
	return cfg, nil
}

// ExcelReaderConfig configures the excel reader. ItemsCol and PeriodsRow are
// 1-based, as shown in a spreadsheet.
type ExcelReaderConfig struct {
	Source        string               `mapstructure:"source" validate:"required,notblank"`
	FormatType    string               `mapstructure:"format_type" validate:"oneof=excel"`
	SheetName     string               `mapstructure:"sheet_name" validate:"notblank"`
	ItemsCol      int                  `mapstructure:"items_col" validate:"min=1"`
	PeriodsRow    int                  `mapstructure:"periods_row" validate:"min=1"`
	Layout        string               `mapstructure:"layout" validate:"oneof=long wide"`
	ItemCol       string               `mapstructure:"item_col"`
	PeriodCol     string               `mapstructure:"period_col"`
	ValueCol      string               `mapstructure:"value_col"`
	MappingConfig iocore.ScopedMapping `mapstructure:"mapping_config"`
	StatementType string               `mapstructure:"statement_type"`
}

// ParseExcelReaderConfig validates raw into an ExcelReaderConfig.
func ParseExcelReaderConfig(raw map[string]any) (ExcelReaderConfig, error) {
	cfg := ExcelReaderConfig{
		FormatType: FormatExcel,
		SheetName:  config.Get().IO.DefaultExcelSheet,
		ItemsCol:   1,
		PeriodsRow: 1,
		Layout:     LayoutWide,
		ItemCol:    "item",
		PeriodCol:  "period",
		ValueCol:   "value",
	}
	d := iocore.NewFieldDecoder("ExcelReaderConfig", raw)
	d.Decode(&cfg, false)

	if err := d.Err(); err != nil {
		return ExcelReaderConfig{}, err
	}
	return cfg, nil
}

// DataFrameReaderConfig configures the dataframe reader. Source holds the
// DataFrame itself.
type DataFrameReaderConfig struct {
	Source        any                  `mapstructure:"source" validate:"required"`
	FormatType    string               `mapstructure:"format_type" validate:"oneof=dataframe"`
	Layout        string               `mapstructure:"layout" validate:"oneof=long wide"`
	ItemCol       string               `mapstructure:"item_col" validate:"notblank"`
	PeriodCol     string               `mapstructure:"period_col"`
	ValueCol      string               `mapstructure:"value_col"`
	Periods       []string             `mapstructure:"periods"`
	MappingConfig iocore.ScopedMapping `mapstructure:"mapping_config"`
	StatementType string               `mapstructure:"statement_type"`
}

// ParseDataFrameReaderConfig validates raw into a DataFrameReaderConfig.
func ParseDataFrameReaderConfig(raw map[string]any) (DataFrameReaderConfig, error) {
	cfg := DataFrameReaderConfig{
		FormatType: FormatDataFrame,
		Layout:     LayoutWide,
		ItemCol:    config.Get().IO.DefaultItemColumn,
		PeriodCol:  "period",
		ValueCol:   "value",
	}
	d := iocore.NewFieldDecoder("DataFrameReaderConfig", raw)
	d.Decode(&cfg, false)

	if err := d.Err(); err != nil {
		return DataFrameReaderConfig{}, err
	}
	return cfg, nil
}

// DictReaderConfig configures the dict reader. Source is a
// {node: {period: value}} map, JSON bytes, a JSON string or a file path.
type DictReaderConfig struct {
	Source     any    `mapstructure:"source" validate:"required"`
	FormatType string `mapstructure:"format_type" validate:"oneof=dict"`
	// Periods, when set, replaces the inferred period list.
	Periods []string `mapstructure:"periods"`
}

// ParseDictReaderConfig validates raw into a DictReaderConfig.
func ParseDictReaderConfig(raw map[string]any) (DictReaderConfig, error) {
	cfg := DictReaderConfig{FormatType: FormatDict}
	d := iocore.NewFieldDecoder("DictReaderConfig", raw)
	d.Decode(&cfg, false)
	if err := d.Err(); err != nil {
		return DictReaderConfig{}, err
	}
	return cfg, nil
}

// FMPReaderConfig configures the fmp reader. Source is the ticker symbol.
type FMPReaderConfig struct {
	Source         string               `mapstructure:"source" validate:"required,notblank"`
	FormatType     string               `mapstructure:"format_type" validate:"oneof=fmp"`
	StatementType  string               `mapstructure:"statement_type" validate:"required,oneof=income_statement balance_sheet cash_flow"`
	PeriodType     string               `mapstructure:"period_type" validate:"oneof=FY QTR"`
	Limit          int                  `mapstructure:"limit" validate:"min=1"`
	APIKey         string               `mapstructure:"api_key"`
	BaseURL        string               `mapstructure:"base_url" validate:"notblank"`
	ValidateAPIKey bool                 `mapstructure:"validate_api_key"`
	MappingConfig  iocore.ScopedMapping `mapstructure:"mapping_config"`
}

// Ticker returns the upper-cased symbol.
func (c FMPReaderConfig) Ticker() string {
	return strings.ToUpper(strings.TrimSpace(c.Source))
}

// ParseFMPReaderConfig validates raw into an FMPReaderConfig. The API key
// resolves from the explicit value, then FMP_API_KEY, then the settings.
func ParseFMPReaderConfig(raw map[string]any) (FMPReaderConfig, error) {
	s := config.Get()
	cfg := FMPReaderConfig{
		FormatType:     FormatFMP,
		PeriodType:     PeriodAnnual,
		Limit:          5,
		BaseURL:        s.API.FMPBaseURL,
		ValidateAPIKey: s.API.ValidateAPIKey,
	}
	d := iocore.NewFieldDecoder("FMPReaderConfig", raw)
	d.Decode(&cfg, false)

	cfg.Source = cfg.Ticker()
	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = os.Getenv(EnvFMPAPIKey)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = s.API.FMPAPIKey
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		d.Errorf("api_key: FMP API key is required; set api_key, the %s environment variable or api.fmp_api_key", EnvFMPAPIKey)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := d.Err(); err != nil {
		return FMPReaderConfig{}, err
	}
	return cfg, nil
}

// GraphDefinitionReaderConfig configures the graph_definition_dict reader.
type GraphDefinitionReaderConfig struct {
	Source     any    `mapstructure:"source" validate:"required"`
	FormatType string `mapstructure:"format_type" validate:"oneof=graph_definition_dict"`
}

// ParseGraphDefinitionReaderConfig validates raw into a GraphDefinitionReaderConfig.
func ParseGraphDefinitionReaderConfig(raw map[string]any) (GraphDefinitionReaderConfig, error) {
	cfg := GraphDefinitionReaderConfig{FormatType: FormatGraphDefinition}
	d := iocore.NewFieldDecoder("GraphDefinitionReaderConfig", raw)
	d.Decode(&cfg, false)
	if err := d.Err(); err != nil {
		return GraphDefinitionReaderConfig{}, err
	}
	return cfg, nil
}

// HTMLReaderConfig configures the html reader. TableIndex is 0-based over
// the document's <table> elements; ItemsCol and PeriodsRow are 1-based.
type HTMLReaderConfig struct {
	Source        string               `mapstructure:"source" validate:"required,notblank"`
	FormatType    string               `mapstructure:"format_type" validate:"oneof=html"`
	TableIndex    int                  `mapstructure:"table_index" validate:"min=0"`
	ItemsCol      int                  `mapstructure:"items_col" validate:"min=1"`
	PeriodsRow    int                  `mapstructure:"periods_row" validate:"min=1"`
	MappingConfig iocore.ScopedMapping `mapstructure:"mapping_config"`
	StatementType string               `mapstructure:"statement_type"`
}

// ParseHTMLReaderConfig validates raw into an HTMLReaderConfig.
func ParseHTMLReaderConfig(raw map[string]any) (HTMLReaderConfig, error) {
	cfg := HTMLReaderConfig{FormatType: FormatHTML, ItemsCol: 1, PeriodsRow: 1}
	d := iocore.NewFieldDecoder("HTMLReaderConfig", raw)
	d.Decode(&cfg, false)

	if err := d.Err(); err != nil {
		return HTMLReaderConfig{}, err
	}
	return cfg, nil
}

// GraphStoreReaderConfig configures the graph_store reader. Source is the
// key the graph was saved under.
type GraphStoreReaderConfig struct {
	Source     string `mapstructure:"source" validate:"required,notblank"`
	FormatType string `mapstructure:"format_type" validate:"oneof=graph_store"`
	DSN        string `mapstructure:"dsn"`
	Dir        string `mapstructure:"dir"`
}

// ParseGraphStoreReaderConfig validates raw into a GraphStoreReaderConfig.
func ParseGraphStoreReaderConfig(raw map[string]any) (GraphStoreReaderConfig, error) {
	s := config.Get()
	cfg := GraphStoreReaderConfig{FormatType: FormatGraphStore, DSN: s.Store.DatabaseURL, Dir: s.Store.Dir}
	d := iocore.NewFieldDecoder("GraphStoreReaderConfig", raw)
	d.Decode(&cfg, false)
	if cfg.DSN == "" && cfg.Dir == "" {
		d.Errorf("dsn or dir is required")
	}
	if err := d.Err(); err != nil {
		return GraphStoreReaderConfig{}, err
	}
	return cfg, nil
}
