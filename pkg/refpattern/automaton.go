package refpattern

import (
	"fmt"
	"regexp/syntax"
)

// Automaton is a compiled regular expression viewed as a finite automaton.
//
// Only states that are both reachable from the start state and able to reach
// the match state are considered "useful"; every property below is computed
// over that trimmed graph so that dead branches do not inflate the counts.
type Automaton struct {
	expr   string
	prog   *syntax.Prog
	useful []bool
}

// CompileAutomaton parses expr (Perl syntax, no surrounding anchors) and
// compiles it into an Automaton.
func CompileAutomaton(expr string) (*Automaton, error) {
	re, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}

	a := &Automaton{expr: expr, prog: prog}
	a.useful = a.trim()
	return a, nil
}

// Expr returns the expression the automaton was compiled from.
func (a *Automaton) Expr() string { return a.expr }

// successors returns the instruction indexes reachable from pc in one step.
func (a *Automaton) successors(pc int) []int {
	inst := &a.prog.Inst[pc]
	switch inst.Op {
	case syntax.InstAlt, syntax.InstAltMatch:
		return []int{int(inst.Out), int(inst.Arg)}
	case syntax.InstMatch, syntax.InstFail:
		return nil
	default:
		return []int{int(inst.Out)}
	}
}

func consumes(op syntax.InstOp) bool {
	switch op {
	case syntax.InstRune, syntax.InstRune1, syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
		return true
	}
	return false
}

// trim marks the instructions that lie on some path from start to match.
func (a *Automaton) trim() []bool {
	n := len(a.prog.Inst)

	forward := make([]bool, n)
	stack := []int{a.prog.Start}
	forward[a.prog.Start] = true
	reverse := make([][]int, n)
	for len(stack) > 0 {
		pc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range a.successors(pc) {
			reverse[next] = append(reverse[next], pc)
			if !forward[next] {
				forward[next] = true
				stack = append(stack, next)
			}
		}
	}

	useful := make([]bool, n)
	for pc := range a.prog.Inst {
		if forward[pc] && a.prog.Inst[pc].Op == syntax.InstMatch {
			useful[pc] = true
			stack = append(stack, pc)
		}
	}
	for len(stack) > 0 {
		pc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, prev := range reverse[pc] {
			if forward[prev] && !useful[prev] {
				useful[prev] = true
				stack = append(stack, prev)
			}
		}
	}
	return useful
}

// lowestRune returns the smallest rune accepted by a rune-consuming
// instruction.
func lowestRune(inst *syntax.Inst) (rune, bool) {
	switch inst.Op {
	case syntax.InstRune, syntax.InstRune1:
		if len(inst.Rune) == 0 {
			return 0, false
		}
		return inst.Rune[0], true
	case syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
		return 0, true
	}
	return 0, false
}

type backEdge struct {
	from int
	r    rune
	eats bool
}

// ShortestString returns a shortest string accepted by the automaton,
// preferring the lowest rune of every character class. The second result is
// false when the language is empty.
//
// NUL characters (produced by "." or negated classes) are returned as-is;
// callers that need a printable example should replace them.
func (a *Automaton) ShortestString() (string, bool) {
	start := a.prog.Start
	if !a.useful[start] {
		return "", false
	}

	n := len(a.prog.Inst)
	visited := make([]bool, n)
	back := make([]backEdge, n)

	frontier := []int{start}
	visited[start] = true
	back[start] = backEdge{from: -1}

	for len(frontier) > 0 {
		// Expand the frontier over epsilon edges, in priority order.
		var layer []int
		stack := make([]int, 0, len(frontier))
		for i := len(frontier) - 1; i >= 0; i-- {
			stack = append(stack, frontier[i])
		}
		for len(stack) > 0 {
			pc := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			layer = append(layer, pc)

			inst := &a.prog.Inst[pc]
			if inst.Op == syntax.InstMatch {
				return a.reconstruct(back, pc), true
			}
			if consumes(inst.Op) {
				continue
			}
			succ := a.successors(pc)
			for i := len(succ) - 1; i >= 0; i-- {
				next := succ[i]
				if visited[next] || !a.useful[next] {
					continue
				}
				visited[next] = true
				back[next] = backEdge{from: pc}
				stack = append(stack, next)
			}
		}

		var nextFrontier []int
		for _, pc := range layer {
			inst := &a.prog.Inst[pc]
			if !consumes(inst.Op) {
				continue
			}
			r, ok := lowestRune(inst)
			if !ok {
				continue
			}
			next := int(inst.Out)
			if visited[next] || !a.useful[next] {
				continue
			}
			visited[next] = true
			back[next] = backEdge{from: pc, r: r, eats: true}
			nextFrontier = append(nextFrontier, next)
		}
		frontier = nextFrontier
	}
	return "", false
}

func (a *Automaton) reconstruct(back []backEdge, pc int) string {
	var runes []rune
	for pc >= 0 {
		e := back[pc]
		if e.eats {
			runes = append(runes, e.r)
		}
		pc = e.from
	}
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// IsFinite reports whether the automaton accepts a finite language, i.e. no
// useful cycle consumes input.
func (a *Automaton) IsFinite() bool {
	n := len(a.prog.Inst)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var (
		counter int
		stack   []int
		finite  = true
	)

	var strongConnect func(pc int)
	strongConnect = func(pc int) {
		index[pc] = counter
		low[pc] = counter
		counter++
		stack = append(stack, pc)
		onStack[pc] = true

		for _, next := range a.successors(pc) {
			if !a.useful[next] {
				continue
			}
			if index[next] < 0 {
				strongConnect(next)
				low[pc] = min(low[pc], low[next])
			} else if onStack[next] {
				low[pc] = min(low[pc], index[next])
			}
		}

		if low[pc] != index[pc] {
			return
		}
		var members []int
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			members = append(members, top)
			if top == pc {
				break
			}
		}
		if len(members) < 2 {
			return
		}
		for _, m := range members {
			if consumes(a.prog.Inst[m].Op) {
				finite = false
				return
			}
		}
	}

	for pc := range a.prog.Inst {
		if a.useful[pc] && index[pc] < 0 {
			strongConnect(pc)
		}
	}
	return finite
}

// NumTransitions counts the labelled transitions of the trimmed automaton.
// A character class with k disjoint ranges counts as k transitions.
func (a *Automaton) NumTransitions() int {
	count := 0
	for pc := range a.prog.Inst {
		if !a.useful[pc] {
			continue
		}
		inst := &a.prog.Inst[pc]
		switch inst.Op {
		case syntax.InstRune:
			count += max(1, len(inst.Rune)/2)
		case syntax.InstRune1, syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
			count++
		}
	}
	return count
}

// LiteralPrefix returns the literal string every accepted input must start
// with.
func (a *Automaton) LiteralPrefix() string {
	prefix, _ := a.prog.Prefix()
	return prefix
}

// String renders the compiled program, useful when debugging pattern
// ordering.
func (a *Automaton) String() string {
	return a.prog.String()
}
