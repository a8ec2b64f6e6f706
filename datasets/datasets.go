// ABOUTME: Dataset records and profile summaries shown on the data page.
// ABOUTME: Formats overview statistics the way the dashboard displays them (percent, MB, KB).
package datasets

import (
	"fmt"
	"sort"
)

// Dataset is one entry of the backend's dataset collection.
type Dataset struct {
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	TargetColumn string   `json:"targetColumn"`
	TimeColumn   string   `json:"timeColumn,omitempty"`
	Description  string   `json:"description,omitempty"`
	Profile      *Profile `json:"profile,omitempty"`
}

// Key identifies the dataset in selection lists.
func (d Dataset) Key() string { return d.Name }

// Profile is the subset of the backend's profiling report the dashboard renders.
type Profile struct {
	Table     Table               `json:"table"`
	Variables map[string]Variable `json:"variables"`
}

// Table carries whole-dataset statistics.
type Table struct {
	Observations  int            `json:"n"`
	Variables     int            `json:"nVar"`
	CellsMissing  int            `json:"nCellsMissing"`
	PCellsMissing float64        `json:"pCellsMissing"`
	MemorySize    float64        `json:"memorySize"`
	RecordSize    float64        `json:"recordSize"`
	Types         map[string]int `json:"types"`
}

// Variable carries per-column statistics. Pointer fields are absent for
// column types that do not report them.
type Variable struct {
	Type        string         `json:"type"`
	Distinct    int            `json:"nDistinct"`
	Missing     int            `json:"nMissing"`
	PMissing    float64        `json:"pMissing"`
	Imbalance   *float64       `json:"imbalance,omitempty"`
	Mean        *float64       `json:"mean,omitempty"`
	Std         *float64       `json:"std,omitempty"`
	Min         *float64       `json:"min,omitempty"`
	Max         *float64       `json:"max,omitempty"`
	Kurtosis    *float64       `json:"kurtosis,omitempty"`
	Skewness    *float64       `json:"skewness,omitempty"`
	ValueCounts map[string]int `json:"valueCounts,omitempty"`
	Histogram   *Histogram     `json:"histogram,omitempty"`
}

type Histogram struct {
	BinEdges []float64 `json:"binEdges"`
	Counts   []float64 `json:"counts"`
}

// Stat is one labelled line in a statistics table.
type Stat struct {
	Label string
	Value string
}

// Overview renders the table statistics as display rows.
func Overview(t Table) []Stat {
	return []Stat{
		{"Number of Observations", fmt.Sprintf("%d", t.Observations)},
		{"Number of Variables", fmt.Sprintf("%d", t.Variables)},
		{"Missing Cells", fmt.Sprintf("%d", t.CellsMissing)},
		{"Missing Cell (%)", FormatPercent(t.PCellsMissing)},
		{"Size in Memory", FormatMB(t.MemorySize)},
		{"Average Record Size in Memory", FormatKB(t.RecordSize)},
	}
}

// ColumnStats renders the statistics relevant to the variable's type.
func ColumnStats(v Variable) []Stat {
	if v.Type == "Numeric" {
		var out []Stat
		add := func(label string, p *float64) {
			if p != nil {
				out = append(out, Stat{label, fmt.Sprintf("%.3f", *p)})
			}
		}
		add("Mean", v.Mean)
		add("Standard Deviation", v.Std)
		add("Minimum", v.Min)
		add("Maximum", v.Max)
		add("Kurtosis", v.Kurtosis)
		add("Skewness", v.Skewness)
		return out
	}
	out := []Stat{
		{"Number of Distinct Values", fmt.Sprintf("%d", v.Distinct)},
		{"Missing Values", fmt.Sprintf("%d", v.Missing)},
		{"Missing Values (%)", FormatPercent(v.PMissing)},
	}
	if v.Imbalance != nil {
		out = append(out, Stat{"Imbalance", fmt.Sprintf("%.3f", *v.Imbalance)})
	}
	return out
}

// ClassCounts returns the target column's value counts sorted by label.
func ClassCounts(p *Profile, target string) []Stat {
	if p == nil {
		return nil
	}
	v, ok := p.Variables[target]
	if !ok {
		return nil
	}
	labels := make([]string, 0, len(v.ValueCounts))
	for k := range v.ValueCounts {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	out := make([]Stat, len(labels))
	for i, l := range labels {
		out[i] = Stat{l, fmt.Sprintf("%d", v.ValueCounts[l])}
	}
	return out
}

// Columns returns variable names sorted alphabetically.
func Columns(p *Profile) []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Variables))
	for k := range p.Variables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func FormatPercent(ratio float64) string { return fmt.Sprintf("%.2f%%", ratio*100) }
func FormatMB(bytes float64) string { return fmt.Sprintf("%.1f MB", bytes/1024/1024) }
func FormatKB(bytes float64) string { return fmt.Sprintf("%.1f KB", bytes/1024) }
