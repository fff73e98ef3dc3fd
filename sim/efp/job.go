package efp

import "fmt"

// Job is the message moving through the frame.
type Job struct {
	ID            int
	TimeGenerated float64
	TimeProcessed float64
}

func (j Job) String() string {
	return fmt.Sprintf("Job{%d,%v}", j.ID, j.TimeGenerated)
}
