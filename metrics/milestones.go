package metrics

import "sort"

// DefaultMilestones is the fixed start of the milestone ladder. Past the last entry
// every further multiple of milestoneStep is a milestone.
var DefaultMilestones = []int{1, 10, 25, 50, 100, 250, 500, 750, 1000}

const milestoneStep = 500

// SessionNumberMilestones returns the default ladder up to and including total
func SessionNumberMilestones(total int) []int {
	numbers := make([]int, 0, len(DefaultMilestones))
	for _, n := range DefaultMilestones {
		if n > total {
			return numbers
		}
		numbers = append(numbers, n)
	}
	last := DefaultMilestones[len(DefaultMilestones)-1]
	for n := last + milestoneStep; n <= total; n += milestoneStep {
		numbers = append(numbers, n)
	}
	return numbers
}

func milestones(held []Session, ladder []int) []Milestone {
	numbers := SessionNumberMilestones(len(held))
	if ladder != nil {
		numbers = customLadder(ladder, len(held))
	}

	reached := make([]Milestone, 0, len(numbers))
	for _, n := range numbers {
		s := held[n-1]
		reached = append(reached, Milestone{Number: n, Date: s.Start, PartnerID: s.PartnerID})
	}
	return reached
}

// customLadder drops duplicates and numbers outside 1..total
func customLadder(ladder []int, total int) []int {
	seen := make(map[int]struct{}, len(ladder))
	numbers := make([]int, 0, len(ladder))
	for _, n := range ladder {
		if n < 1 || n > total {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}
