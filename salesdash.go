// Package salesdash serves an interactive sales dashboard.
//
// Each run loads a dataset from a source, reads the sidebar selection,
// filters the records and computes the headline metrics, charts and
// records table shown on the page:
//
//	ds, err := src.Load(ctx)
//	sel := dashboard.ParseSelection(r.URL.Query(), layout)
//	d, err := dashboard.Build(ds, sel, layout)
//
// Sources live in the source package, the aggregation engine in engine,
// and the HTML, PNG, CSV and terminal renderers in render.
// The engine never calls any external service; all computation is local.
package salesdash

// Version is the release reported by the salesdash command.
const Version = "0.3.0"
