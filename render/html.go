package render

import (
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// HTML OUTPUT — The interactive dashboard page
// ============================================================================
// Sidebar widgets are a plain GET form, so every change reloads the page with
// the selection in the query string and the server runs the dashboard again.
// ============================================================================

var funcMap = template.FuncMap{
	"fmtTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"fmtInt": engine.FormatInt,
	"isSelect": func(kind string) bool {
		return kind == dashboard.KindSelect
	},
	"isMulti": func(kind string) bool {
		return kind == dashboard.KindMultiSelect
	},
	"align": func(cols []engine.Column, i int) string {
		if i < len(cols) && cols[i].Align == "right" {
			return "num"
		}
		return ""
	},
	"summary": summaryCells,
}

var (
	pageTmpl  = template.Must(template.New("page").Funcs(funcMap).Parse(tmplBase + tmplDashboard))
	errorTmpl = template.Must(template.New("error").Funcs(funcMap).Parse(tmplBase + tmplError))
)

type pageData struct {
	*dashboard.Dashboard
	Query     string
	ExportURL string
	Tabs      []tabView
}

type tabView struct {
	Title  string
	Anchor string
	Panels []panelView
}

type panelView struct {
	ID    string
	Title string
	Empty bool
	Chart template.HTML
	Table *engine.TableData
	PNG   string
}

// HTML writes the full dashboard page.
func HTML(w io.Writer, d *dashboard.Dashboard) error {
	data := pageData{Dashboard: d, Query: d.Selection.Query().Encode()}
	data.ExportURL = withQuery("/export.csv", data.Query)
	for i, tab := range d.Tabs {
		tv := tabView{Title: tab.Title, Anchor: "tab-" + strconv.Itoa(i)}
		for _, p := range tab.Panels {
			pv := panelView{ID: p.ID, Title: p.Title, Empty: p.Empty(), Table: p.TableData}
			if p.ChartConfig != nil {
				pv.Chart = inlineSVG(p.ChartConfig)
				pv.PNG = withQuery("/charts/"+p.ID+".png", data.Query)
			}
			tv.Panels = append(tv.Panels, pv)
		}
		data.Tabs = append(data.Tabs, tv)
	}
	return pageTmpl.ExecuteTemplate(w, "base", data)
}

// ErrorPage writes a page explaining why the dashboard could not be built.
func ErrorPage(w io.Writer, title string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return errorTmpl.ExecuteTemplate(w, "base", struct {
		Title   string
		Message string
	}{title, msg})
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

const tmplBase = `
{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,sans-serif;background:#0d1117;color:#c9d1d9;font-size:13px;line-height:1.5;display:flex;min-height:100vh}
a{color:#58a6ff;text-decoration:none}
a:hover{text-decoration:underline}
aside{background:#161b22;border-right:1px solid #30363d;padding:16px;width:240px;flex-shrink:0}
aside h2{font-size:12px;color:#8b949e;text-transform:uppercase;letter-spacing:.06em;margin-bottom:12px}
aside label{display:block;font-size:11px;color:#8b949e;margin:12px 0 4px}
aside select,aside input{width:100%;background:#0d1117;color:#c9d1d9;border:1px solid #30363d;border-radius:4px;padding:4px}
aside button{margin-top:16px;width:100%;background:#1f6feb;color:#fff;border:0;border-radius:4px;padding:6px;cursor:pointer}
main{padding:16px;flex:1;min-width:0}
h1{font-size:18px;font-weight:700;color:#f0f6fc;margin-bottom:4px}
h2{font-size:13px;font-weight:600;color:#8b949e;text-transform:uppercase;letter-spacing:.06em;margin:16px 0 8px}
.meta{color:#8b949e;font-size:11px;margin-bottom:12px}
.cards{display:flex;gap:12px;flex-wrap:wrap;margin-bottom:16px}
.card{background:#161b22;border:1px solid #30363d;border-radius:6px;padding:12px 16px;min-width:160px}
.card .val{font-size:22px;font-weight:700;color:#f0f6fc}
.card .lbl{font-size:11px;color:#8b949e;margin-top:2px}
.tabs{display:flex;gap:8px;margin-bottom:8px}
.tabs a{padding:4px 10px;border:1px solid #30363d;border-radius:4px;color:#8b949e}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(420px,1fr));gap:12px}
.section{background:#161b22;border:1px solid #30363d;border-radius:6px;margin-bottom:16px;overflow:hidden}
.section-hdr{padding:8px 12px;border-bottom:1px solid #30363d;font-size:11px;font-weight:600;color:#8b949e;text-transform:uppercase;letter-spacing:.05em;background:#0d1117;display:flex;justify-content:space-between}
svg.chart{width:100%;height:auto;display:block;padding:8px;background:#f0f6fc}
.chart-empty{padding:24px;text-align:center}
table{width:100%;border-collapse:collapse;font-size:12px}
th{text-align:left;padding:6px 10px;border-bottom:1px solid #30363d;color:#8b949e;font-weight:600;font-size:11px;text-transform:uppercase;letter-spacing:.05em}
td{padding:5px 10px;border-bottom:1px solid #21262d}
tr:hover td{background:#161b22}
.num{text-align:right}
.dim{color:#8b949e}
.err{color:#f87171}
</style>
</head>
<body>
{{template "content" .}}
</body>
</html>{{end}}
`

const tmplDashboard = `
{{define "content"}}
<aside>
<h2>Filters</h2>
<form method="get" action="/">
{{range .Controls}}
<label for="f-{{.Key}}">{{.Label}}</label>
{{if isSelect .Kind}}
<select id="f-{{.Key}}" name="{{.Key}}">
{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{end}}</select>
{{else if isMulti .Kind}}
<select id="f-{{.Key}}" name="{{.Key}}" multiple size="6">
{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{end}}</select>
{{else}}
<input id="f-{{.Key}}" type="number" name="{{.Key}}" min="{{.Min}}" max="{{.Max}}" value="{{.Value}}">
{{end}}
{{end}}
<button type="submit">Apply</button>
</form>
</aside>
<main>
<h1>{{.Title}}</h1>
<div class="meta">{{.Period}} &middot; {{fmtInt .Matched}} of {{fmtInt .Total}} records &middot; {{.Source}} (loaded {{fmtTime .LoadedAt}})</div>
<div class="cards">
{{range .Metrics}}<div class="card"><div class="val">{{.Value}}</div><div class="lbl">{{.Label}}</div></div>
{{end}}</div>
<nav class="tabs">{{range .Tabs}}<a href="#{{.Anchor}}">{{.Title}}</a>{{end}}<a href="#records">{{.Records.Title}}</a></nav>
{{range .Tabs}}
<h2 id="{{.Anchor}}">{{.Title}}</h2>
<div class="grid">
{{range .Panels}}
<div class="section">
<div class="section-hdr"><span>{{.Title}}</span>{{if and .PNG (not .Empty)}}<a href="{{.PNG}}">PNG</a>{{end}}</div>
{{if .Chart}}{{.Chart}}{{else if .Table}}{{template "table" .Table}}{{else}}<div class="dim">No data</div>{{end}}
</div>
{{end}}
</div>
{{end}}
<h2 id="records">{{.Records.Title}} <a href="{{.ExportURL}}">CSV</a></h2>
<div class="section">{{template "table" .Records}}</div>
</main>
{{end}}

{{define "table"}}
<table>
{{$cols := .Columns}}
<thead><tr>{{range $i, $c := $cols}}<th class="{{align $cols $i}}">{{$c.Label}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range $i, $v := .}}<td class="{{align $cols $i}}">{{$v}}</td>{{end}}</tr>
{{else}}<tr><td class="dim">No data</td></tr>
{{end}}</tbody>
{{with summary .}}<tfoot><tr>{{range $i, $v := .}}<td class="{{align $cols $i}}"><b>{{$v}}</b></td>{{end}}</tr></tfoot>{{end}}
</table>
{{end}}
`

const tmplError = `
{{define "content"}}
<main>
<h1>{{.Title}}</h1>
<p class="err">{{.Message}}</p>
<p class="dim">Check the data source settings and reload.</p>
</main>
{{end}}
`
