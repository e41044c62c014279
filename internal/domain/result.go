package domain

// Outcome classifies a board position.
type Outcome uint8

const (
	InProgress Outcome = iota
	Win
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "in_progress"
	}
}

// Result is the evaluation of a board. Winner is only set for Win and Line is
// the index into WinningLines of the completed line, or -1.
type Result struct {
	Outcome Outcome
	Winner  Cell
	Line    int
}

// Over reports whether the game has ended.
func (r Result) Over() bool { return r.Outcome != InProgress }

// Cells returns the board indices of the winning line, or nil.
func (r Result) Cells() []int {
	if r.Outcome != Win || r.Line < 0 || r.Line >= len(WinningLines) {
		return nil
	}
	ln := WinningLines[r.Line]
	return ln[:]
}

// Evaluate reports whether b holds a win, a draw or neither.
//
// Lines are checked in WinningLines order and the first complete one decides
// the result. Legal play never completes two lines for different players, so
// this only matters for arbitrary boards, where the earlier line wins.
func Evaluate(b Board) Result {
	for i, ln := range WinningLines {
		c := b[ln[0]]
		if c != Empty && c == b[ln[1]] && c == b[ln[2]] {
			return Result{Outcome: Win, Winner: c, Line: i}
		}
	}
	if b.Full() {
		return Result{Outcome: Draw, Line: -1}
	}
	return Result{Outcome: InProgress, Line: -1}
}
