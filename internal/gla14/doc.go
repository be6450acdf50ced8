// Package gla14 holds the shared types for decoding GLAS/ICESat GLA14
// altimetry products: the per-shot measurement, the 40-shot batch produced
// for each physical record, structural errors and the package log streams.
//
// The decoding itself lives in the sub-packages:
//
//	layout   - byte offset tables for the Legacy and Release33 record formats
//	codec    - raw stored integers to physical values, sentinel detection
//	quality  - per-shot keep/discard predicates
//	extract  - decodes one physical record into a Batch
//	scan     - iterates records across a file, sequentially or in parallel
//	header   - parses the text preamble (record length, header records)
//	csvout   - writes kept shots as CSV, one row per shot
//	report   - run statistics and charts
package gla14
