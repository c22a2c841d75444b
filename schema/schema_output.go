package schema

import "sort"

// LabelDistribution compares how one label is spread over the partitions.
type LabelDistribution struct {
	Label    string  `json:"label"`
	Train    int     `json:"train"`
	Validate int     `json:"validate"`
	Test     int     `json:"test"`
	Total    int     `json:"total"`
	Drift    float64 `json:"drift"` // largest deviation from the overall share, in percentage points
}

// BuildLabelDistribution merges per-partition label counts into one row per
// label, ordered by total rows descending and then by label.
func BuildLabelDistribution(parts []PartitionSummary) []LabelDistribution {
	byLabel := make(map[string]*LabelDistribution)
	partRows := make(map[PartitionName]int)
	grand := 0
	for _, p := range parts {
		partRows[p.Name] = p.Rows
		grand += p.Rows
		for _, lc := range p.Labels {
			d, ok := byLabel[lc.Label]
			if !ok {
				d = &LabelDistribution{Label: lc.Label}
				byLabel[lc.Label] = d
			}
			switch p.Name {
			case TrainPartition:
				d.Train += lc.Rows
			case ValidatePartition:
				d.Validate += lc.Rows
			case TestPartition:
				d.Test += lc.Rows
			}
			d.Total += lc.Rows
		}
	}

	out := make([]LabelDistribution, 0, len(byLabel))
	for _, d := range byLabel {
		if grand > 0 {
			overall := float64(d.Total) / float64(grand)
			for name, rows := range map[PartitionName]int{TrainPartition: d.Train, ValidatePartition: d.Validate, TestPartition: d.Test} {
				n := partRows[name]
				if n == 0 {
					continue
				}
				dev := (float64(rows)/float64(n) - overall) * 100
				if dev < 0 {
					dev = -dev
				}
				if dev > d.Drift {
					d.Drift = dev
				}
			}
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Label < out[j].Label
	})
	return out
}
