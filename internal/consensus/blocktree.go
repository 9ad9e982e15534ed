// Package consensus implements the block tree and longest-chain tracking:
// the data structure that records every block a node has accepted,
// identifies the current best tip, and computes reorg plans when the
// best tip changes.
package consensus

import (
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Node is a single entry in the block tree. The parent link is a
// back-reference for traversal only; ownership flows downward through
// Children. Go's garbage collector tolerates the resulting reference
// cycle, so no arena/handle indirection is needed here.
type Node struct {
	Block    *block.Block
	Parent   *Node
	Children []*Node
	Height   int
}

// ReorgPlan describes the blocks to undo (walking the old best tip up to
// the common ancestor) and the blocks to redo (walking the new best tip
// up to the common ancestor) when the best chain changes.
type ReorgPlan struct {
	ToUndo []*Node // old best tip -> ancestor (exclusive), in that order
	ToRedo []*Node // new tip -> ancestor (exclusive), in that order
}

// IsEmpty reports whether the plan carries no work (a pure extension of
// the previous best chain).
func (p *ReorgPlan) IsEmpty() bool {
	return p == nil || (len(p.ToUndo) == 0 && len(p.ToRedo) == 0)
}

// State is the consensus engine owned by a single node.
type State struct {
	Root                          *Node
	BestTip                       *Node
	BestHeight                    int
	PreviousBestHeightAtLastReorg int
	OrphanThreshold               int

	byHash map[types.Hash]*Node
}

// NewState installs the genesis block as the tree's root. Genesis is
// installed exactly once per node, before mining starts.
func NewState(genesis *block.Block, orphanThreshold int) *State {
	root := &Node{Block: genesis, Height: 0}
	return &State{
		Root:            root,
		BestTip:         root,
		BestHeight:      0,
		OrphanThreshold: orphanThreshold,
		byHash:          map[types.Hash]*Node{genesis.BlockHash: root},
	}
}

// AddBlock attaches a new block as a child of the node matching its
// previous_hash. It returns the reorg plan to apply (empty if the block
// extends the current best chain or lands on a side chain), and false if
// the block's parent is not locally known (such blocks are dropped rather
// than buffered).
func (s *State) AddBlock(b *block.Block) (*ReorgPlan, bool) {
	parent, ok := s.byHash[b.PreviousHash]
	if !ok {
		return nil, false
	}

	child := &Node{Block: b, Parent: parent, Height: parent.Height + 1}
	parent.Children = append(parent.Children, child)
	s.byHash[b.BlockHash] = child

	if child.Height <= s.BestHeight {
		return &ReorgPlan{}, true
	}

	var plan *ReorgPlan
	if s.BestTip != nil && s.BestTip != parent {
		ancestor := commonAncestor(child, s.BestTip)
		plan = &ReorgPlan{
			ToUndo: pathExclusive(s.BestTip, ancestor),
			ToRedo: pathExclusive(child, ancestor),
		}
		// previous_best_height_at_last_reorg only moves on an actual
		// reorg, not on every pure extension (confirmed against the
		// reference consensus engine's second_longest_head_height field).
		s.PreviousBestHeightAtLastReorg = s.BestTip.Height
	} else {
		plan = &ReorgPlan{}
	}

	s.BestTip = child
	s.BestHeight = child.Height
	return plan, true
}

// pathExclusive walks from n up to (but not including) ancestor,
// returning nodes in that walked order (deepest first).
func pathExclusive(n, ancestor *Node) []*Node {
	var path []*Node
	for cur := n; cur != nil && cur != ancestor; cur = cur.Parent {
		path = append(path, cur)
	}
	return path
}

// commonAncestor implements the symmetric dual-pointer walk: both
// pointers climb one step at a time, each accumulating the hashes it has
// visited, checking at every step whether the other pointer has already
// been seen. When one side reaches the root, only the other side
// continues climbing. Correctness relies on the first-seen tie break
// guaranteeing a single ancestor chain per hash.
func commonAncestor(a, b *Node) *Node {
	if a == b {
		return a
	}

	visitedA := map[*Node]bool{a: true}
	visitedB := map[*Node]bool{b: true}
	curA, curB := a, b

	for {
		if curA.Parent != nil {
			curA = curA.Parent
			if visitedB[curA] {
				return curA
			}
			visitedA[curA] = true
		}
		if curB.Parent != nil {
			curB = curB.Parent
			if visitedA[curB] {
				return curB
			}
			visitedB[curB] = true
		}
		if curA.Parent == nil && curB.Parent == nil {
			return curA // both reached root; root is shared by construction
		}
	}
}

// IdentifyOrphans prunes every non-best subtree once the best chain has
// outrun the last reorg point by more than OrphanThreshold, returning the
// blocks collected from the pruned subtrees. Returns nil if pruning does
// not yet apply.
func (s *State) IdentifyOrphans() []*block.Block {
	if s.BestHeight-s.PreviousBestHeightAtLastReorg <= s.OrphanThreshold {
		return nil
	}

	// Walk from best_tip to genesis, recording the best-chain child at
	// each internal node so non-best siblings can be identified.
	bestChild := make(map[*Node]*Node)
	for cur := s.BestTip; cur.Parent != nil; cur = cur.Parent {
		bestChild[cur.Parent] = cur
	}

	var orphans []*block.Block
	for n, keep := range bestChild {
		if len(n.Children) <= 1 {
			continue
		}
		var kept []*Node
		for _, c := range n.Children {
			if c == keep {
				kept = append(kept, c)
				continue
			}
			orphans = append(orphans, collectSubtree(c, s.byHash)...)
		}
		n.Children = kept
	}
	return orphans
}

// collectSubtree gathers every block in the subtree rooted at n and
// removes each from the hash index.
func collectSubtree(n *Node, byHash map[types.Hash]*Node) []*block.Block {
	blocks := []*block.Block{n.Block}
	delete(byHash, n.Block.BlockHash)
	for _, c := range n.Children {
		blocks = append(blocks, collectSubtree(c, byHash)...)
	}
	return blocks
}

// NodeByHash looks up a tree node by its block hash.
func (s *State) NodeByHash(h types.Hash) (*Node, bool) {
	n, ok := s.byHash[h]
	return n, ok
}
