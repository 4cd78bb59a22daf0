// Package dataprocessing parses trial files and merges them into one master table.
//
// # Trial file layout
//
// Each file describes one trial of an item counted under a system type:
//
//	Item,Widget A
//	System Type,AI
//	number of objects,40
//	number of defects,3
//	Round,Min,Sec,Sec/100,Defects for Round,Observed Total Count for Round,Accuracy for Round,Count 1
//	1,0,42,15,1,39,0.97,12
//	2,0,39,80,0,40,1,13
//
//	Notes
//	"operator swapped at round 2,,,"
//
// The header line is the first one starting with "round". Data rows follow
// until a blank line, a "notes" line or end of file.
//
// # Components
//
//  1. DetectLayout: locates header, data rows and notes without parsing values
//  2. Parser: coerces cells, broadcasts per-file constants onto each round
//  3. Assembler: runs the parser over a batch, records per-file failures and
//     computes the union of count columns
//  4. Summarize: descriptive statistics over a merged table
//
// # Usage
//
//	asm, err := dataprocessing.NewAssembler(logger, telemetry)
//	if err != nil {
//	    return err
//	}
//	table, err := asm.Assemble(ctx, paths)
//	if table.Empty() {
//	    // nothing to save; table.Failures says why
//	}
//
// # Error Handling
//
// Missing header, missing item/system type and unreadable files exclude the
// file and appear in MasterTable.Failures. Bad cells fall back to a default
// and bad round numbers drop the row; both are counted in ParsedFile.Stats.
package dataprocessing
