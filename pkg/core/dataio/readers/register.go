package readers

import (
	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
	"finstatements/pkg/core/dataio/mappings"
)

// Registrations lists every built-in reader.
func Registrations() []iocore.Registration[iocore.Reader] {
	return []iocore.Registration[iocore.Reader]{
		{FormatType: ioconfig.FormatCSV, Factory: NewCSVReader, Schema: ioconfig.CSVReaderSchema, MappingPath: mappings.CSV},
		{FormatType: ioconfig.FormatExcel, Factory: NewExcelReader, Schema: ioconfig.ExcelReaderSchema, MappingPath: mappings.Excel},
		{FormatType: ioconfig.FormatDataFrame, Factory: NewDataFrameReader, Schema: ioconfig.DataFrameReaderSchema},
		{FormatType: ioconfig.FormatDict, Factory: NewDictReader, Schema: ioconfig.DictReaderSchema},
		{FormatType: ioconfig.FormatFMP, Factory: NewFMPReader, Schema: ioconfig.FMPReaderSchema, MappingPath: mappings.FMP},
		{FormatType: ioconfig.FormatGraphDefinition, Factory: NewGraphDefinitionReader, Schema: ioconfig.GraphDefinitionReaderSchema},
		{FormatType: ioconfig.FormatHTML, Factory: NewHTMLReader, Schema: ioconfig.HTMLReaderSchema, MappingPath: mappings.HTML},
		{FormatType: ioconfig.FormatGraphStore, Factory: NewGraphStoreReader, Schema: ioconfig.GraphStoreReaderSchema},
	}
}

// Register adds every built-in reader to r.
func Register(r *iocore.Registry[iocore.Reader]) error {
	for _, reg := range Registrations() {
		if err := r.Register(reg); err != nil {
			return err
		}
	}
	return nil
}
