package trace

import (
	"fmt"
	"io"
	"sort"
)

// Summary aggregates statistics from a trajectory. It is itself a Logger, so
// it can be teed next to a file sink and read after the run.
type Summary struct {
	TotalOutputs       int
	TotalStates        int
	LastTime           float64
	UniqueModels       int
	OutputsByModel     map[string]int // model path → number of output messages
	TransitionsByModel map[string]int // model path → number of state records
}

// NewSummary creates an empty Summary.
func NewSummary() *Summary {
	return &Summary{
		OutputsByModel:     make(map[string]int),
		TransitionsByModel: make(map[string]int),
	}
}

// Summarize computes aggregate statistics from recorded trajectory lines.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(records []Record) *Summary {
	summary := NewSummary()
	for _, r := range records {
		if r.IsState() {
			summary.LogState(r.Time, r.Model, r.Data)
		} else {
			summary.LogOutput(r.Time, r.Model, r.Port, r.Data)
		}
	}
	return summary
}

func (s *Summary) Start() error { return nil }
func (s *Summary) Stop() error  { return nil }

// LogOutput counts an output message.
func (s *Summary) LogOutput(t float64, model, port, data string) {
	s.TotalOutputs++
	s.OutputsByModel[model]++
	s.observe(t, model)
}

// LogState counts a state record.
func (s *Summary) LogState(t float64, model, state string) {
	s.TotalStates++
	s.TransitionsByModel[model]++
	s.observe(t, model)
}

func (s *Summary) observe(t float64, model string) {
	if s.TotalOutputs+s.TotalStates == 1 || t > s.LastTime {
		s.LastTime = t
	}
	if s.OutputsByModel[model]+s.TransitionsByModel[model] == 1 {
		s.UniqueModels++
	}
}

// Print writes the summary, listing models in path order.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Trajectory Summary ===")
	fmt.Fprintf(w, "Output Records : %d\n", s.TotalOutputs)
	fmt.Fprintf(w, "State Records  : %d\n", s.TotalStates)
	fmt.Fprintf(w, "Models         : %d\n", s.UniqueModels)
	fmt.Fprintf(w, "Last Time      : %s\n", FormatTime(s.LastTime))
	if len(s.OutputsByModel) == 0 {
		return
	}
	models := make([]string, 0, len(s.OutputsByModel))
	for m := range s.OutputsByModel {
		models = append(models, m)
	}
	sort.Strings(models)
	fmt.Fprintln(w, "Outputs by model:")
	for _, m := range models {
		fmt.Fprintf(w, "  %s: %d\n", m, s.OutputsByModel[m])
	}
}
