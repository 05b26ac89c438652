// Package data bundles the fictitious sales dataset served by default.
package data

import _ "embed"

// SalesCSV is the bundled dataset: 100 purchases between 2020 and 2023,
// Portuguese headers, day-first dates.
//
//go:embed sales.csv
var SalesCSV []byte

// SalesName is the source name reported for the bundled dataset.
const SalesName = "embedded:sales.csv"
