// Package dataprocessing turns weekly turnstile files into validated
// per-interval usage counts.
//
// # Architecture
//
// The pipeline has four stages, each a pure function of its input:
//
//  1. Reader: decodes comma-delimited text (or the first sheet of an .xlsx
//     archive) into RawRecords. Malformed rows become parse RowErrors and
//     are skipped. Header rows pass through.
//  2. Sanitizer: drops header rows re-emitted by concatenated files and
//     coerces the cumulative counters to integers.
//  3. DeltaComputer: groups readings by physical counter, orders each group
//     by time and emits the difference to the previous reading.
//  4. Cleaner: keeps deltas in [0, Ceiling) and derives station, date,
//     time of day and weekday.
//
// # Usage
//
//	res, err := dataprocessing.NewReader(logger).ReadFile(ctx, "data/turnstile_210102.txt")
//	raw := dataprocessing.Concat([]*dataprocessing.ReadResult{res})
//	san := dataprocessing.NewSanitizer(logger).Sanitize(ctx, raw)
//	deltas, _ := dataprocessing.NewDeltaComputer(logger).Compute(ctx, san.Records)
//	clean := dataprocessing.NewCleaner(dataprocessing.DefaultCleanPolicy(), logger).Clean(ctx, deltas)
package dataprocessing
