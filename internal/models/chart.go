package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ChartType is one of the supported visualization kinds.
type ChartType string

const (
	ChartArea      ChartType = "area"
	ChartBar       ChartType = "bar"
	ChartLine      ChartType = "line"
	ChartComposed  ChartType = "composed"
	ChartScatter   ChartType = "scatter"
	ChartPie       ChartType = "pie"
	ChartRadar     ChartType = "radar"
	ChartRadialBar ChartType = "radialbar"
	ChartTreemap   ChartType = "treemap"
	ChartFunnel    ChartType = "funnel"
)

// ChartTypes lists every supported kind in presentation order.
var ChartTypes = []ChartType{
	ChartArea,
	ChartBar,
	ChartLine,
	ChartComposed,
	ChartScatter,
	ChartPie,
	ChartRadar,
	ChartRadialBar,
	ChartTreemap,
	ChartFunnel,
}

var chartTypeSet = func() map[ChartType]struct{} {
	set := make(map[ChartType]struct{}, len(ChartTypes))
	for _, t := range ChartTypes {
		set[t] = struct{}{}
	}
	return set
}()

// ParseChartType normalizes raw to lower case and reports whether it names a
// supported chart kind. Unknown labels are never coerced into a kind.
func ParseChartType(raw string) (ChartType, bool) {
	t := ChartType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := chartTypeSet[t]; !ok {
		return "", false
	}
	return t, true
}

func (t ChartType) String() string { return string(t) }

// ChartDataPoint is one generated record. Name, Value and Color are read
// leniently; every field the generator emitted is kept and written back
// unchanged, so a point that is not shaped as expected still round-trips.
type ChartDataPoint struct {
	Name  string
	Value float64
	Color string

	HasValue bool
	raw      json.RawMessage
	fallback *float64
}

// NewChartDataPoint builds a well-formed point with the three contract keys.
func NewChartDataPoint(name string, value float64, color string) ChartDataPoint {
	p := ChartDataPoint{Name: name, Value: value, Color: color, HasValue: true}
	p.raw, _ = json.Marshal(struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
		Color string  `json:"color"`
	}{name, value, color})
	return p
}

func (p *ChartDataPoint) UnmarshalJSON(data []byte) error {
	p.raw = append(json.RawMessage(nil), data...)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Not an object; keep it as-is.
		return nil
	}
	p.fallback = firstNumericField(data)

	if v, ok := fields["name"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			p.Name = s
		} else {
			p.Name = strings.Trim(string(bytes.TrimSpace(v)), `"`)
		}
	}
	if v, ok := fields["value"]; ok {
		var f float64
		if json.Unmarshal(v, &f) == nil {
			p.Value = f
			p.HasValue = true
		}
	}
	if v, ok := fields["color"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			p.Color = s
		}
	}
	return nil
}

func (p ChartDataPoint) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	return json.Marshal(struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
		Color string  `json:"color"`
	}{p.Name, p.Value, p.Color})
}

// Numeric returns the point's value. When the generator renamed the value
// key after the user's metric, the first other numeric field is used.
func (p ChartDataPoint) Numeric() (float64, bool) {
	if p.HasValue {
		return p.Value, true
	}
	if p.fallback != nil {
		return *p.fallback, true
	}
	return 0, false
}

// firstNumericField walks an object in document order and returns the first
// numeric member other than name and color.
func firstNumericField(data []byte) *float64 {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil
		}
		if key == "name" || key == "color" {
			continue
		}
		var f float64
		if json.Unmarshal(v, &f) == nil {
			return &f
		}
	}
	return nil
}

// ChartRequest is a single submission. An empty APIKey selects the server's
// default credential.
type ChartRequest struct {
	Text   string
	APIKey string
}
