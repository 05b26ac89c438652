package dashboard

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// SELECTION + CONTROLS — Sidebar state in, widget options out
// ============================================================================

// Selection is the current value of every sidebar widget.
type Selection struct {
	Values map[string][]string `json:"values"`
	TopN   int                 `json:"topN,omitempty"`
}

// ParseSelection reads one parameter per filter key (repeated for
// multiselects) plus "top". Blank values are dropped.
func ParseSelection(q url.Values, layout Layout) Selection {
	sel := Selection{Values: make(map[string][]string)}
	for _, f := range layout.Filters {
		for _, v := range q[f.Key] {
			if v = strings.TrimSpace(v); v != "" {
				sel.Values[f.Key] = append(sel.Values[f.Key], v)
			}
		}
	}
	if n, err := strconv.Atoi(q.Get(TopNKey)); err == nil {
		sel.TopN = n
	}
	return sel
}

// Query is the inverse of ParseSelection, for links that keep the selection.
func (s Selection) Query() url.Values {
	q := url.Values{}
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range s.Values[k] {
			q.Add(k, v)
		}
	}
	if s.TopN != 0 {
		q.Set(TopNKey, strconv.Itoa(s.TopN))
	}
	return q
}

// Filters converts a selection into engine filters. A control's all label,
// engine.AllValue or an empty value selects everything for that dimension.
func Filters(sel Selection, layout Layout) engine.Filters {
	f := engine.Filters{Dimensions: make(map[string][]string)}
	for _, c := range layout.Filters {
		var vals []string
		for _, v := range sel.Values[c.Key] {
			if v == "" {
				continue
			}
			if v == engine.AllValue || (c.AllLabel != "" && v == c.AllLabel) {
				vals = []string{engine.AllValue}
				break
			}
			vals = append(vals, v)
		}
		if len(vals) > 0 {
			f.Dimensions[c.Key] = vals
		}
	}
	return f
}

// Control is a render-ready sidebar widget.
type Control struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"`
	Options []ControlOption `json:"options,omitempty"`

	// number inputs
	Min   int `json:"min,omitempty"`
	Max   int `json:"max,omitempty"`
	Value int `json:"value,omitempty"`
}

// ControlOption is one entry of a select or multiselect.
type ControlOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Controls lists the sidebar widgets with options taken from the full
// dataset view, so options never disappear when another filter narrows the
// rows. The top-N input is appended when any panel uses it.
func Controls(view engine.RecordView, layout Layout, sel Selection) []Control {
	filters := Filters(sel, layout)
	controls := make([]Control, 0, len(layout.Filters)+1)

	for _, fc := range layout.Filters {
		active := filters.Active(fc.Key)
		selected := make(map[string]bool, len(active))
		for _, v := range active {
			selected[v] = true
		}

		c := Control{Key: fc.Key, Label: fc.Label, Kind: fc.Kind}
		if fc.Kind == KindSelect {
			c.Options = append(c.Options, ControlOption{Value: fc.AllLabel, Label: fc.AllLabel, Selected: len(active) == 0})
		}
		values := engine.UniqueValues(view, fc.Key)
		if fc.Order == OrderAsc {
			sort.Strings(values)
		}
		for _, v := range values {
			if v == "" {
				continue
			}
			c.Options = append(c.Options, ControlOption{Value: v, Label: v, Selected: selected[v]})
			delete(selected, v)
		}
		// Values missing from the dataset stay selected so the widget shows
		// the filter that emptied the page.
		for _, v := range active {
			if selected[v] {
				c.Options = append(c.Options, ControlOption{Value: v, Label: v, Selected: true})
				delete(selected, v)
			}
		}
		controls = append(controls, c)
	}

	if usesTopN(layout) {
		controls = append(controls, Control{
			Key:   TopNKey,
			Label: "Number of sellers",
			Kind:  KindNumber,
			Min:   layout.TopN.Min,
			Max:   layout.TopN.Max,
			Value: layout.TopN.Clamp(sel.TopN),
		})
	}
	return controls
}

func usesTopN(layout Layout) bool {
	for _, p := range layout.Panels() {
		if p.TopN {
			return true
		}
	}
	return false
}
