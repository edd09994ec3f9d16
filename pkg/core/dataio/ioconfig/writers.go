package ioconfig

import (
	"strings"

	"finstatements/pkg/core/config"
	"finstatements/pkg/core/dataio/iocore"
)

// =============================================================================
// WRITER CONFIGS
// =============================================================================

// ExcelWriterConfig configures the excel writer. Target is the workbook path.
type ExcelWriterConfig struct {
	Target       string   `mapstructure:"target" validate:"required,notblank"`
	FormatType   string   `mapstructure:"format_type" validate:"oneof=excel"`
	SheetName    string   `mapstructure:"sheet_name" validate:"notblank"`
	Recalculate  bool     `mapstructure:"recalculate"`
	IncludeNodes []string `mapstructure:"include_nodes"`
}

// ParseExcelWriterConfig validates raw into an ExcelWriterConfig.
func ParseExcelWriterConfig(raw map[string]any) (ExcelWriterConfig, error) {
	cfg := ExcelWriterConfig{
		FormatType:  FormatExcel,
		SheetName:   config.Get().IO.DefaultExcelSheet,
		Recalculate: true,
	}
	d := iocore.NewFieldDecoder("ExcelWriterConfig", raw)
	d.Decode(&cfg, false)
	if cfg.Target != "" && !strings.HasSuffix(strings.ToLower(cfg.Target), ".xlsx") {
		d.Errorf("target: must be an .xlsx path, got %q", cfg.Target)
	}
	if err := d.Err(); err != nil {
		return ExcelWriterConfig{}, err
	}
	return cfg, nil
}

// DataFrameWriterConfig configures the dataframe writer.
type DataFrameWriterConfig struct {
	Target       any      `mapstructure:"target"`
	FormatType   string   `mapstructure:"format_type" validate:"oneof=dataframe"`
	Recalculate  bool     `mapstructure:"recalculate"`
	IncludeNodes []string `mapstructure:"include_nodes"`
}

// ParseDataFrameWriterConfig validates raw into a DataFrameWriterConfig.
func ParseDataFrameWriterConfig(raw map[string]any) (DataFrameWriterConfig, error) {
	cfg := DataFrameWriterConfig{FormatType: FormatDataFrame, Recalculate: true}
	d := iocore.NewFieldDecoder("DataFrameWriterConfig", raw)
	d.Decode(&cfg, false)
	if err := d.Err(); err != nil {
		return DataFrameWriterConfig{}, err
	}
	return cfg, nil
}

// DictWriterConfig configures the dict writer.
type DictWriterConfig struct {
	Target       any      `mapstructure:"target"`
	FormatType   string   `mapstructure:"format_type" validate:"oneof=dict"`
	Recalculate  bool     `mapstructure:"recalculate"`
	IncludeNodes []string `mapstructure:"include_nodes"`
}

// ParseDictWriterConfig validates raw into a DictWriterConfig.
func ParseDictWriterConfig(raw map[string]any) (DictWriterConfig, error) {
	cfg := DictWriterConfig{FormatType: FormatDict, Recalculate: true}
	d := iocore.NewFieldDecoder("DictWriterConfig", raw)
	d.Decode(&cfg, false)
	if err := d.Err(); err != nil {
		return DictWriterConfig{}, err
	}
	return cfg, nil
}

// MarkdownWriterConfig configures the markdown writer. Keys it does not know
// are kept in Extra and forwarded to the renderer.
type MarkdownWriterConfig struct {
	Target             any            `mapstructure:"target"`
	FormatType         string         `mapstructure:"format_type" validate:"oneof=markdown"`
	HistoricalPeriods  []string       `mapstructure:"historical_periods"`
	ForecastPeriods    []string       `mapstructure:"forecast_periods"`
	ForecastNotes      bool           `mapstructure:"forecast_notes"`
	AdjustmentNotes    bool           `mapstructure:"adjustment_notes"`
	AdjustmentScenario string         `mapstructure:"adjustment_scenario"`
	IncludeNodes       []string       `mapstructure:"include_nodes"`
	Recalculate        bool           `mapstructure:"recalculate"`
	Extra              map[string]any `mapstructure:",remain"`
}

// ParseMarkdownWriterConfig validates raw into a MarkdownWriterConfig.
func ParseMarkdownWriterConfig(raw map[string]any) (MarkdownWriterConfig, error) {
	cfg := MarkdownWriterConfig{
		FormatType:      FormatMarkdown,
		ForecastNotes:   true,
		AdjustmentNotes: true,
		Recalculate:     true,
	}
	d := iocore.NewFieldDecoder("MarkdownWriterConfig", raw)
	d.Decode(&cfg, true)
	if err := d.Err(); err != nil {
		return MarkdownWriterConfig{}, err
	}
	return cfg, nil
}

// GraphDefinitionWriterConfig configures the graph_definition_dict writer.
// A string Target is a JSON file path the definition is also written to.
type GraphDefinitionWriterConfig struct {
	Target     any    `mapstructure:"target"`
	FormatType string `mapstructure:"format_type" validate:"oneof=graph_definition_dict"`
	Indent     bool   `mapstructure:"indent"`
}

// ParseGraphDefinitionWriterConfig validates raw into a GraphDefinitionWriterConfig.
func ParseGraphDefinitionWriterConfig(raw map[string]any) (GraphDefinitionWriterConfig, error) {
	cfg := GraphDefinitionWriterConfig{FormatType: FormatGraphDefinition, Indent: true}
	d := iocore.NewFieldDecoder("GraphDefinitionWriterConfig", raw)
	d.Decode(&cfg, false)
	if t, ok := cfg.Target.(string); ok && strings.TrimSpace(t) == "" {
		cfg.Target = nil
	}
	if err := d.Err(); err != nil {
		return GraphDefinitionWriterConfig{}, err
	}
	return cfg, nil
}

// GraphStoreWriterConfig configures the graph_store writer. Target is the
// key to save under.
type GraphStoreWriterConfig struct {
	Target     string `mapstructure:"target" validate:"required,notblank"`
	FormatType string `mapstructure:"format_type" validate:"oneof=graph_store"`
	DSN        string `mapstructure:"dsn"`
	Dir        string `mapstructure:"dir"`
}

// ParseGraphStoreWriterConfig validates raw into a GraphStoreWriterConfig.
func ParseGraphStoreWriterConfig(raw map[string]any) (GraphStoreWriterConfig, error) {
	s := config.Get()
	cfg := GraphStoreWriterConfig{FormatType: FormatGraphStore, DSN: s.Store.DatabaseURL, Dir: s.Store.Dir}
	d := iocore.NewFieldDecoder("GraphStoreWriterConfig", raw)
	d.Decode(&cfg, false)
	if cfg.DSN == "" && cfg.Dir == "" {
		d.Errorf("dsn or dir is required")
	}
	if err := d.Err(); err != nil {
		return GraphStoreWriterConfig{}, err
	}
	return cfg, nil
}
