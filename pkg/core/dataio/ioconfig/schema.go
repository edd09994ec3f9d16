package ioconfig

import "finstatements/pkg/core/dataio/iocore"

func schemaOf[T any](parse func(map[string]any) (T, error)) iocore.Schema {
	return func(raw map[string]any) (any, error) {
		cfg, err := parse(raw)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
}

// Reader schemas.
var (
	CSVReaderSchema             = schemaOf(ParseCSVReaderConfig)
	ExcelReaderSchema           = schemaOf(ParseExcelReaderConfig)
	DataFrameReaderSchema       = schemaOf(ParseDataFrameReaderConfig)
	DictReaderSchema            = schemaOf(ParseDictReaderConfig)
	FMPReaderSchema             = schemaOf(ParseFMPReaderConfig)
	GraphDefinitionReaderSchema = schemaOf(ParseGraphDefinitionReaderConfig)
	HTMLReaderSchema            = schemaOf(ParseHTMLReaderConfig)
	GraphStoreReaderSchema      = schemaOf(ParseGraphStoreReaderConfig)
)

// Writer schemas.
var (
	ExcelWriterSchema           = schemaOf(ParseExcelWriterConfig)
	DataFrameWriterSchema       = schemaOf(ParseDataFrameWriterConfig)
	DictWriterSchema            = schemaOf(ParseDictWriterConfig)
	MarkdownWriterSchema        = schemaOf(ParseMarkdownWriterConfig)
	GraphDefinitionWriterSchema = schemaOf(ParseGraphDefinitionWriterConfig)
	GraphStoreWriterSchema      = schemaOf(ParseGraphStoreWriterConfig)
)
