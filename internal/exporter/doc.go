// Package exporter writes merged trial data as flat CSV.
//
// CSVWriter projects every record onto the master table's column list: the
// fixed columns first, then the count columns present anywhere in the batch.
// Floats are written in shortest form and missing values as empty cells.
// The UTF-8 BOM is opt-in, for spreadsheets that need it to detect UTF-8.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.WriteMasterTable(ctx, "master_data_for_analysis.csv", table, exporter.WriteOptions{})
//	if errors.Is(err, apperrors.ErrEmptyTable) {
//	    // nothing was parsed; no file written
//	}
package exporter
