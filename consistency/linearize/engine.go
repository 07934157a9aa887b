package linearize

import (
	"math/rand"
	"sort"

	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Solver describes one constrained-linearization problem: a precedence
// DAG plus a placement constraint. The engine owns the search; the
// solver owns the domain state, updated through the bookkeeping hooks.
//
// BacktrackBookKeeping must exactly reverse ForwardBookKeeping. Both
// are called with the placed vertex still last in the linearization.
type Solver interface {
	// Options returns the search tuning for this solver.
	Options() Options
	// Vertices returns every vertex of the DAG.
	Vertices() []Vertex
	// ChildrenOf returns the successors of v in the DAG.
	ChildrenOf(v Vertex) []Vertex
	// AllowNext reports whether v may be placed next given the current
	// linearization and solver state.
	AllowNext(lin []Vertex, v Vertex) bool
	// ForwardBookKeeping updates solver state after a placement.
	ForwardBookKeeping(lin []Vertex)
	// BacktrackBookKeeping undoes the matching ForwardBookKeeping.
	BacktrackBookKeeping(lin []Vertex)
	// BranchScore ranks a frontier candidate for branch ordering.
	BranchScore(lin []Vertex, v Vertex) int64
	// ZobristValue returns the per-vertex tag for frontier hashing.
	ZobristValue(v Vertex) Hash128
	// FrontierSignature mixes solver state into the memoization
	// signature. Called with the zero hash it must return a tag of the
	// solver state alone.
	FrontierSignature(frontierHash Hash128, lin []Vertex) Hash128
	// ShouldPrune cuts the current branch before any other check.
	ShouldPrune(lin []Vertex, frontierLen int) bool
}

// domKey identifies comparable search states for dominance pruning:
// same solver state, same depth, frontiers differing.
type domKey struct {
	state Hash128
	depth int
}

const dominanceBucketCap = 4

type engine struct {
	solver   Solver
	opts     Options
	vertices []Vertex
	children map[Vertex][]Vertex
	indeg    map[Vertex]int

	// Learned across attempts.
	nogood    map[Hash128]int
	dominance map[domKey][][]Vertex
	killer    map[int]Vertex
	counter   map[Vertex]Vertex
	histScore map[Vertex]int64
	pv        []Vertex

	bestDepthByMode map[BranchOrdering]int
}

type attemptConfig struct {
	mode          BranchOrdering
	budget        int64
	rng           *rand.Rand
	allowBackjump bool
}

type candidate struct {
	v     Vertex
	legal bool
	score int64
	boost int64
	pv    bool
	tie   int64
}

type frame struct {
	sig        Hash128
	dom        domKey
	snapshot   []Vertex
	candidates []candidate
	idx        int
	placed     bool
	placedV    Vertex
	activated  []Vertex
	deepestAt  int
}

type attempt struct {
	cfg          attemptConfig
	frontier     map[Vertex]struct{}
	frontierHash Hash128
	activeParent map[Vertex]int
	lin          []Vertex
	seen         map[Hash128]struct{}
	frames       []*frame
	nodes        int64
	aborted      bool
	backjump     int
	deepest      int
	deepestLin   []Vertex
}

// Search runs the solver's full restart schedule and reports whether a
// complete constrained linearization exists. The final attempt is
// unbudgeted and deterministic, so the result is definitive.
func Search(s Solver) ([]Vertex, bool) {
	e := newEngine(s)

	if len(e.vertices) == 0 {
		return nil, true
	}

	for i := 0; i < e.opts.RestartAttempts; i++ {
		cfg := attemptConfig{
			mode:          e.opts.BranchOrdering,
			budget:        e.opts.RestartNodeBudget,
			allowBackjump: e.opts.NogoodLearning,
		}
		rng := rand.New(rand.NewSource(e.opts.Seed + int64(i)*7919))
		if e.opts.AdaptivePortfolio {
			cfg.mode = e.pickMode(i, rng)
		}
		if e.opts.TieBreak == TieRandomized {
			cfg.rng = rng
		}

		res := e.runAttempt(cfg)
		log.L().Debug("linearization attempt finished",
			zap.Int("attempt", i),
			zap.String("mode", cfg.mode.String()),
			zap.Int64("nodes", res.nodes),
			zap.Int("deepest", res.deepest),
			zap.Bool("found", res.found),
			zap.Bool("aborted", res.aborted))
		if res.found {
			return res.lin, true
		}
		if !res.aborted {
			// The budgeted attempt exhausted the space.
			return nil, false
		}
		if res.deepest > e.bestDepthByMode[cfg.mode] {
			e.bestDepthByMode[cfg.mode] = res.deepest
		}
		if e.opts.PrincipalVariation {
			e.pv = res.deepestLin
		}
	}

	final := attemptConfig{mode: e.finalMode()}
	res := e.runAttempt(final)
	log.L().Debug("final linearization attempt finished",
		zap.String("mode", final.mode.String()),
		zap.Int64("nodes", res.nodes),
		zap.Bool("found", res.found))
	return res.lin, res.found
}

func newEngine(s Solver) *engine {
	vertices := append([]Vertex(nil), s.Vertices()...)
	sort.Slice(vertices, func(i, j int) bool { return vertices[i].Less(vertices[j]) })

	children := make(map[Vertex][]Vertex, len(vertices))
	indeg := make(map[Vertex]int, len(vertices))
	for _, v := range vertices {
		indeg[v] += 0
		cs := append([]Vertex(nil), s.ChildrenOf(v)...)
		sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
		children[v] = cs
		for _, c := range cs {
			indeg[c]++
		}
	}

	return &engine{
		solver:          s,
		opts:            s.Options(),
		vertices:        vertices,
		children:        children,
		indeg:           indeg,
		nogood:          make(map[Hash128]int),
		dominance:       make(map[domKey][][]Vertex),
		killer:          make(map[int]Vertex),
		counter:         make(map[Vertex]Vertex),
		histScore:       make(map[Vertex]int64),
		bestDepthByMode: make(map[BranchOrdering]int),
	}
}

var portfolioModes = []BranchOrdering{HighScoreFirst, LowScoreFirst, AsProvided}

// pickMode cycles through the portfolio first, then favors the mode
// that has reached the greatest depth, with occasional exploration.
func (e *engine) pickMode(i int, rng *rand.Rand) BranchOrdering {
	if i < len(portfolioModes) {
		return portfolioModes[i]
	}
	if rng.Intn(4) == 0 {
		return portfolioModes[rng.Intn(len(portfolioModes))]
	}
	best := portfolioModes[0]
	for _, m := range portfolioModes[1:] {
		if e.bestDepthByMode[m] > e.bestDepthByMode[best] {
			best = m
		}
	}
	return best
}

func (e *engine) finalMode() BranchOrdering {
	if !e.opts.AdaptivePortfolio {
		return e.opts.BranchOrdering
	}
	best := e.opts.BranchOrdering
	for _, m := range portfolioModes {
		if e.bestDepthByMode[m] > e.bestDepthByMode[best] {
			best = m
		}
	}
	return best
}

type attemptResult struct {
	lin        []Vertex
	found      bool
	aborted    bool
	nodes      int64
	deepest    int
	deepestLin []Vertex
}

func (e *engine) runAttempt(cfg attemptConfig) attemptResult {
	a := &attempt{
		cfg:          cfg,
		frontier:     make(map[Vertex]struct{}),
		activeParent: make(map[Vertex]int, len(e.indeg)),
		seen:         make(map[Hash128]struct{}),
		backjump:     -1,
	}
	for v, d := range e.indeg {
		a.activeParent[v] = d
		if d == 0 {
			a.frontier[v] = struct{}{}
			a.frontierHash = a.frontierHash.Xor(e.solver.ZobristValue(v))
		}
	}

	entered, success := e.enter(a)
	if success {
		return attemptResult{lin: a.lin, found: true, nodes: a.nodes}
	}
	if !entered {
		return attemptResult{aborted: a.aborted, nodes: a.nodes, deepest: a.deepest, deepestLin: a.deepestLin}
	}

	for len(a.frames) > 0 {
		f := a.frames[len(a.frames)-1]
		if f.placed {
			e.undo(a, f)
		}
		if a.aborted {
			a.frames = a.frames[:len(a.frames)-1]
			continue
		}
		if a.backjump >= 0 {
			if len(a.lin) > a.backjump {
				// Skip remaining siblings; the conflict lies shallower.
				a.frames = a.frames[:len(a.frames)-1]
				continue
			}
			a.backjump = -1
		}

		descended := false
		for f.idx < len(f.candidates) {
			c := f.candidates[f.idx]
			f.idx++
			if !c.legal {
				continue
			}
			e.place(a, f, c.v)
			entered, success := e.enter(a)
			if success {
				return attemptResult{lin: a.lin, found: true, nodes: a.nodes}
			}
			if entered {
				descended = true
				break
			}
			e.undo(a, f)
			if a.aborted {
				break
			}
			if a.backjump >= 0 {
				if len(a.lin) > a.backjump {
					break
				}
				a.backjump = -1
			}
		}
		if descended {
			continue
		}

		exhausted := !a.aborted && f.idx >= len(f.candidates) &&
			!(a.backjump >= 0 && len(a.lin) > a.backjump)
		if exhausted {
			e.learnFailure(a, f)
		}
		a.frames = a.frames[:len(a.frames)-1]
	}

	return attemptResult{aborted: a.aborted, nodes: a.nodes, deepest: a.deepest, deepestLin: a.deepestLin}
}

// enter evaluates the current search state. It either reports success
// (complete linearization), pushes a frame and reports entered, or
// reports a failed/pruned state.
func (e *engine) enter(a *attempt) (entered, success bool) {
	a.nodes++
	if a.cfg.budget > 0 && a.nodes > a.cfg.budget {
		a.aborted = true
		return false, false
	}

	if len(a.lin) > a.deepest {
		a.deepest = len(a.lin)
		a.deepestLin = append(a.deepestLin[:0], a.lin...)
	}

	if e.solver.ShouldPrune(a.lin, len(a.frontier)) {
		return false, false
	}

	sig := e.solver.FrontierSignature(a.frontierHash, a.lin)
	if e.opts.MemoizeFrontier {
		if _, ok := a.seen[sig]; ok {
			return false, false
		}
		a.seen[sig] = struct{}{}
	}
	if e.opts.NogoodLearning {
		if depth, ok := e.nogood[sig]; ok {
			if a.cfg.allowBackjump && depth < len(a.lin) {
				a.backjump = depth
			}
			return false, false
		}
	}

	var dom domKey
	var snapshot []Vertex
	if e.opts.DominancePruning {
		dom = domKey{state: e.solver.FrontierSignature(Hash128{}, a.lin), depth: len(a.lin)}
		snapshot = a.sortedFrontier()
		for _, failed := range e.dominance[dom] {
			if containsAll(failed, snapshot) {
				return false, false
			}
		}
	}

	if len(a.frontier) == 0 {
		if len(a.lin) == len(e.vertices) {
			return false, true
		}
		return false, false
	}

	f := &frame{
		sig:        sig,
		dom:        dom,
		snapshot:   snapshot,
		candidates: e.orderCandidates(a),
	}
	a.frames = append(a.frames, f)
	return true, false
}

func (e *engine) place(a *attempt, f *frame, v Vertex) {
	delete(a.frontier, v)
	a.frontierHash = a.frontierHash.Xor(e.solver.ZobristValue(v))

	f.activated = f.activated[:0]
	for _, c := range e.children[v] {
		a.activeParent[c]--
		if a.activeParent[c] == 0 {
			a.frontier[c] = struct{}{}
			a.frontierHash = a.frontierHash.Xor(e.solver.ZobristValue(c))
			f.activated = append(f.activated, c)
		}
	}

	a.lin = append(a.lin, v)
	e.solver.ForwardBookKeeping(a.lin)
	f.placed = true
	f.placedV = v
	f.deepestAt = a.deepest
}

func (e *engine) undo(a *attempt, f *frame) {
	v := f.placedV
	e.solver.BacktrackBookKeeping(a.lin)
	a.lin = a.lin[:len(a.lin)-1]

	for _, c := range e.children[v] {
		a.activeParent[c]++
	}
	for _, c := range f.activated {
		delete(a.frontier, c)
		a.frontierHash = a.frontierHash.Xor(e.solver.ZobristValue(c))
	}
	a.frontier[v] = struct{}{}
	a.frontierHash = a.frontierHash.Xor(e.solver.ZobristValue(v))
	f.placed = false

	if e.opts.KillerHistory {
		if gain := a.deepest - f.deepestAt; gain > 0 {
			depth := len(a.lin)
			e.killer[depth] = v
			e.histScore[v] += int64(gain)
			if depth > 0 {
				e.counter[a.lin[depth-1]] = v
			}
		}
	}
}

// learnFailure records an exhaustively failed state in the cross-
// attempt tables.
func (e *engine) learnFailure(a *attempt, f *frame) {
	if e.opts.NogoodLearning {
		e.nogood[f.sig] = len(a.lin)
	}
	if e.opts.DominancePruning {
		bucket := e.dominance[f.dom]
		if len(bucket) < dominanceBucketCap {
			e.dominance[f.dom] = append(bucket, f.snapshot)
		}
	}
}

func (a *attempt) sortedFrontier() []Vertex {
	vs := make([]Vertex, 0, len(a.frontier))
	for v := range a.frontier {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
	return vs
}

// containsAll reports whether the sorted slice super contains every
// element of the sorted slice sub.
func containsAll(super, sub []Vertex) bool {
	if len(sub) > len(super) {
		return false
	}
	i := 0
	for _, v := range sub {
		for i < len(super) && super[i].Less(v) {
			i++
		}
		if i >= len(super) || super[i] != v {
			return false
		}
		i++
	}
	return true
}

func (e *engine) orderCandidates(a *attempt) []candidate {
	base := a.sortedFrontier()
	depth := len(a.lin)

	cands := make([]candidate, len(base))
	for i, v := range base {
		c := candidate{v: v, tie: int64(i)}
		c.legal = e.solver.AllowNext(a.lin, v)
		if a.cfg.mode != AsProvided {
			c.score = e.solver.BranchScore(a.lin, v)
		}
		if e.opts.KillerHistory {
			if e.killer[depth] == v {
				c.boost += 1 << 20
			}
			if depth > 0 {
				if cv, ok := e.counter[a.lin[depth-1]]; ok && cv == v {
					c.boost += 1 << 16
				}
			}
			c.boost += e.histScore[v]
		}
		if e.opts.PrincipalVariation && depth < len(e.pv) && e.pv[depth] == v {
			c.pv = true
		}
		if a.cfg.rng != nil {
			c.tie = a.cfg.rng.Int63()
		}
		cands[i] = c
	}

	sort.SliceStable(cands, func(i, j int) bool {
		ci, cj := cands[i], cands[j]
		if ci.pv != cj.pv {
			return ci.pv
		}
		if e.opts.PreferAllowedFirst && ci.legal != cj.legal {
			return ci.legal
		}
		switch a.cfg.mode {
		case HighScoreFirst:
			if ci.score != cj.score {
				return ci.score > cj.score
			}
		case LowScoreFirst:
			if ci.score != cj.score {
				return ci.score < cj.score
			}
		}
		if ci.boost != cj.boost {
			return ci.boost > cj.boost
		}
		return ci.tie < cj.tie
	})
	return cands
}
