package timeline

import (
	"fmt"
	"math"
)

// maxCyclesPerJob caps how many cycles one job block may accumulate before
// the boundary search stops extending.
const maxCyclesPerJob = 4

// JobBlock is a group of consecutive cycles treated as one job for variance
// reporting. Target and Variance are nil for segments with no target
// duration; Verdict is filled by the classifier.
type JobBlock struct {
	Label        string
	Cycles       []Cycle
	Seconds      float64
	Target       *float64
	Variance     *float64
	VarianceText string
	Verdict      *Verdict
}

// cycleQueue is an explicit cursor over a segment's cycles. The grouper
// hands cycles back by rewinding the cursor, which keeps the backtracking
// step a visible operation instead of hidden index arithmetic.
type cycleQueue struct {
	cycles []Cycle
	pos    int
}

func (q *cycleQueue) next() (Cycle, bool) {
	if q.pos >= len(q.cycles) {
		return Cycle{}, false
	}
	c := q.cycles[q.pos]
	q.pos++
	return c, true
}

// giveBack returns the n most recently consumed cycles to the front of the
// queue.
func (q *cycleQueue) giveBack(n int) {
	q.pos -= n
	if q.pos < 0 {
		q.pos = 0
	}
}

func (q *cycleQueue) empty() bool {
	return q.pos >= len(q.cycles)
}

// GroupCycles bin-packs consecutive cycles into job blocks against a target
// duration. Without a positive target every cycle stands alone. With one,
// each block extends while the gap to the previous cycle stays within
// toleranceSec, tracking the prefix whose sum lands closest to the target;
// extension stops once the running sum reaches the target or the block holds
// maxCyclesPerJob cycles. The block closes at the best prefix and any
// overshoot cycles go back to the queue for the next block.
func GroupCycles(cycles []Cycle, targetSec, toleranceSec float64) []JobBlock {
	if len(cycles) == 0 {
		return nil
	}

	var blocks []JobBlock
	if !isValidDuration(targetSec) {
		for _, c := range cycles {
			blocks = append(blocks, newJobBlock([]Cycle{c}, nil))
		}
	} else {
		q := &cycleQueue{cycles: cycles}
		for !q.empty() {
			taken := packBlock(q, targetSec, toleranceSec)
			blocks = append(blocks, newJobBlock(taken, &targetSec))
		}
	}

	for i := range blocks {
		blocks[i].Label = fmt.Sprintf("Job %d", i+1)
	}
	return blocks
}

// packBlock consumes cycles from the queue until a stop condition fires,
// then rewinds the queue to the best prefix and returns it. The first cycle
// is always taken, so the queue always advances.
func packBlock(q *cycleQueue, targetSec, toleranceSec float64) []Cycle {
	first, _ := q.next()
	taken := []Cycle{first}
	sum := first.Seconds
	bestLen := 1
	bestDiff := math.Abs(sum - targetSec)

	for len(taken) < maxCyclesPerJob && sum < targetSec {
		c, ok := q.next()
		if !ok {
			break
		}
		gap := c.Start.Timestamp.Sub(taken[len(taken)-1].End.Timestamp).Seconds()
		if gap > toleranceSec {
			q.giveBack(1)
			break
		}
		taken = append(taken, c)
		sum += c.Seconds
		if diff := math.Abs(sum - targetSec); diff < bestDiff {
			bestDiff = diff
			bestLen = len(taken)
		}
	}

	q.giveBack(len(taken) - bestLen)
	return taken[:bestLen]
}

func newJobBlock(cycles []Cycle, target *float64) JobBlock {
	block := JobBlock{Cycles: cycles}
	for _, c := range cycles {
		block.Seconds += c.Seconds
	}
	if target != nil {
		t := *target
		v := block.Seconds - t
		block.Target = &t
		block.Variance = &v
		block.VarianceText = deltaText(v)
	}
	return block
}
