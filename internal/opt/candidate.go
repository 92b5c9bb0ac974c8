package opt

import "metrosched/internal/model"

// Assignment is one trainset's slot in a candidate solution.
type Assignment struct {
	Status  string
	DailyKM float64
	Rank    int
}

// Candidate is one full proposed assignment across the fleet, index-aligned
// with Problem.Fleet. Candidates are owned exclusively by the solver that
// created them.
type Candidate struct {
	Assign []Assignment
}

// NewCandidate returns the neutral all-standby baseline.
func NewCandidate(n int) *Candidate {
	c := &Candidate{Assign: make([]Assignment, n)}
	for i := range c.Assign {
		c.Assign[i].Status = model.StatusStandby
	}
	return c
}

// Clone deep-copies the candidate.
func (c *Candidate) Clone() *Candidate {
	out := &Candidate{Assign: make([]Assignment, len(c.Assign))}
	copy(out.Assign, c.Assign)
	return out
}

// Counts returns the per-status totals. They always sum to the fleet size.
func (c *Candidate) Counts() (service, standby, maintenance int) {
	for i := range c.Assign {
		switch c.Assign[i].Status {
		case model.StatusRevenueService:
			service++
		case model.StatusMaintenance:
			maintenance++
		default:
			standby++
		}
	}
	return
}

// Deviation counts assignments that differ from the all-standby baseline.
// Used as the stability term of the shared tie-break.
func (c *Candidate) Deviation() int {
	n := 0
	for i := range c.Assign {
		if c.Assign[i].Status != model.StatusStandby {
			n++
		}
	}
	return n
}
