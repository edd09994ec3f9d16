package writers

import (
	"finstatements/pkg/core/dataio/iocore"
	"finstatements/pkg/core/dataio/ioconfig"
)

// Registrations lists every built-in writer.
func Registrations() []iocore.Registration[iocore.Writer] {
	return []iocore.Registration[iocore.Writer]{
		{FormatType: ioconfig.FormatExcel, Factory: NewExcelWriter, Schema: ioconfig.ExcelWriterSchema},
		{FormatType: ioconfig.FormatDataFrame, Factory: NewDataFrameWriter, Schema: ioconfig.DataFrameWriterSchema},
		{FormatType: ioconfig.FormatDict, Factory: NewDictWriter, Schema: ioconfig.DictWriterSchema},
		{FormatType: ioconfig.FormatMarkdown, Factory: NewMarkdownWriter, Schema: ioconfig.MarkdownWriterSchema},
		{FormatType: ioconfig.FormatGraphDefinition, Factory: NewGraphDefinitionWriter, Schema: ioconfig.GraphDefinitionWriterSchema},
		{FormatType: ioconfig.FormatGraphStore, Factory: NewGraphStoreWriter, Schema: ioconfig.GraphStoreWriterSchema},
	}
}

// Register adds every built-in writer to r.
func Register(r *iocore.Registry[iocore.Writer]) error {
	for _, reg := range Registrations() {
		if err := r.Register(reg); err != nil {
			return err
		}
	}
	return nil
}
