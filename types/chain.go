package types

// ChainState is the head of the commit chain being built for one paint.
//
// It is a value: each step produces a new state via Advance, so the chain
// is always linear and rooted at the branch tip that was resolved at start.
// The remote branch ref may lag behind HeadCommitSHA.
type ChainState struct {
	// HeadCommitSHA is the parent for the next commit.
	HeadCommitSHA string
	// HeadTreeSHA is the tree of HeadCommitSHA, used as base_tree.
	HeadTreeSHA string
	// BranchRef is the ref being advanced, without the "refs/" prefix
	// (e.g. "heads/main").
	BranchRef string
}

// Advance returns the state after a commit with the given tree was created
// on top of the current head.
func (s ChainState) Advance(commitSHA, treeSHA string) ChainState {
	return ChainState{
		HeadCommitSHA: commitSHA,
		HeadTreeSHA:   treeSHA,
		BranchRef:     s.BranchRef,
	}
}
