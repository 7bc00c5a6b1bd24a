package vx

import "time"

// Perf accumulates execution times. Tmp is the last duration; Beg and End
// bound the last run.
type Perf struct {
	Tmp time.Duration `json:"tmp"`
	Beg time.Time     `json:"beg"`
	End time.Time     `json:"end"`
	Sum time.Duration `json:"sum"`
	Avg time.Duration `json:"avg"`
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Num uint64        `json:"num"`
}

func (p *Perf) record(beg, end time.Time) {
	d := end.Sub(beg)
	p.Beg, p.End, p.Tmp = beg, end, d
	p.Sum += d
	p.Num++
	p.Avg = p.Sum / time.Duration(p.Num)
	if p.Num == 1 || d < p.Min {
		p.Min = d
	}
	if d > p.Max {
		p.Max = d
	}
}
