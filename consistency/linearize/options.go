package linearize

// BranchOrdering selects how frontier candidates are ordered at each
// DFS node.
type BranchOrdering int

const (
	// AsProvided keeps the deterministic base order.
	AsProvided BranchOrdering = iota
	// HighScoreFirst tries higher-scoring candidates first.
	HighScoreFirst
	// LowScoreFirst tries lower-scoring candidates first.
	LowScoreFirst
)

func (b BranchOrdering) String() string {
	switch b {
	case HighScoreFirst:
		return "high-score-first"
	case LowScoreFirst:
		return "low-score-first"
	}
	return "as-provided"
}

// TieBreak selects how candidates with equal ordering keys are broken.
type TieBreak int

const (
	// TieDeterministic breaks ties by vertex order.
	TieDeterministic TieBreak = iota
	// TieRandomized breaks ties by the attempt's RNG. The final
	// unbudgeted attempt always runs deterministically.
	TieRandomized
)

// Options tunes the DFS engine. Zero values disable every feature
// except the search itself; DefaultOptions is the usual starting
// point.
type Options struct {
	// MemoizeFrontier prunes states whose signature was already
	// entered during the current attempt.
	MemoizeFrontier bool
	// NogoodLearning records signatures of exhaustively failed states
	// across attempts and backjumps over them in budgeted attempts.
	NogoodLearning bool
	// DominancePruning prunes states whose frontier is a subset of an
	// already-failed frontier with the same solver state and depth.
	DominancePruning bool
	// KillerHistory enables the killer-, history- and counter-move
	// ordering boosts.
	KillerHistory bool
	// PreferAllowedFirst orders candidates passing AllowNext before
	// blocked ones.
	PreferAllowedFirst bool
	// PrincipalVariation retries the deepest prefix of the previous
	// attempt first.
	PrincipalVariation bool
	// BranchOrdering is the base candidate ordering.
	BranchOrdering BranchOrdering
	// TieBreak applies within equal ordering keys during budgeted
	// attempts.
	TieBreak TieBreak
	// RestartAttempts is the number of budgeted attempts before the
	// final unbudgeted one. Zero disables restarts.
	RestartAttempts int
	// RestartNodeBudget is the node budget per budgeted attempt.
	RestartNodeBudget int64
	// AdaptivePortfolio lets restarts pick the branch ordering that
	// reached the greatest depth so far.
	AdaptivePortfolio bool
	// Seed drives every randomized decision, making runs reproducible.
	Seed int64
}

// DefaultOptions enables memoization only, matching the behavior a
// solver gets when it does not tune the search.
func DefaultOptions() Options {
	return Options{
		MemoizeFrontier: true,
		BranchOrdering:  AsProvided,
	}
}

// TunedOptions enables every pruning and ordering feature with
// high-score-first branching. The snapshot isolation check uses it,
// since its search space is the one that blows up in practice.
func TunedOptions() Options {
	return Options{
		MemoizeFrontier:    true,
		NogoodLearning:     true,
		DominancePruning:   true,
		KillerHistory:      true,
		PreferAllowedFirst: true,
		PrincipalVariation: true,
		BranchOrdering:     HighScoreFirst,
	}
}
