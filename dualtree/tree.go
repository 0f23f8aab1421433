// Package dualtree implements the speculative dual-stack tree each worker
// drives while tokenizing its chunk. A chunk is parsed with no known entry
// context, so every possible nesting depth the chunk could have begun at
// is tracked as a parallel hypothesis. Two trees are kept in lockstep:
//
//   - the finish tree, rooted at the hypotheses' current (most recently
//     reached) automaton states;
//   - the start tree, rooted at the hypotheses' entry states, growing
//     backwards in time whenever a close tag resolves to an element that
//     must have already been open before the chunk started.
//
// Nodes live in an arena addressed by NodeID rather than pointers, so a
// historical node can be detached and reattached by integer assignment
// with no aliasing or lifetime hazards.
package dualtree

import (
	"fmt"

	"github.com/woshijl58/xpathsplit/automaton"
)

// NodeID indexes into a Tree's arena. Index 0 of each arena is that
// arena's root node; NoNode is used for "no parent" / "no twin".
type NodeID int32

// NoNode is the nil NodeID.
const NoNode NodeID = -1

// node is one arena entry. children is keyed by automaton state, matching
// the "at most one child per state" uniqueness invariant: children[s] is
// always a node whose State is s.
type node struct {
	parent   NodeID
	state    int
	children map[int]NodeID
	twin     NodeID // meaningful only on leaves; NoNode otherwise

	output    string
	hasOutput bool
}

// arena is a growable node store; NodeIDs are indices into nodes.
type arena struct {
	nodes []node
}

func (a *arena) get(id NodeID) *node { return &a.nodes[id] }

func (a *arena) alloc(n node) NodeID {
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

func (a *arena) isLeaf(id NodeID) bool {
	return len(a.get(id).children) == 0
}

// Tree is the pair of arenas and their two roots a single worker drives
// while scanning one chunk. New seeds both roots with one hypothesis per
// possible entry state before the first token is processed.
type Tree struct {
	auto *automaton.Automaton

	start      arena
	finish     arena
	startRoot  NodeID
	finishRoot NodeID
}

// New builds a Tree seeded with one hypothesis per state in seeds. The
// chunk that opens the document is seeded with just {1}, its one known
// entry state; every other chunk is seeded with every state the
// automaton has (1..NumStates()), since nothing is known yet about what
// preceded the chunk's first byte. Tracking every hypothesis as a
// sibling root child of one shared Tree, rather than as separate trees,
// is what lets HandleOpen/HandleClose/HandleText merge hypotheses that
// converge and is what Harvest relies on to find a single survivor.
func New(a *automaton.Automaton, seeds []int) *Tree {
	t := &Tree{auto: a}
	t.startRoot = t.start.alloc(node{parent: NoNode, state: -1, children: map[int]NodeID{}})
	t.finishRoot = t.finish.alloc(node{parent: NoNode, state: -1, children: map[int]NodeID{}})

	for _, seed := range seeds {
		if _, exists := t.finish.get(t.finishRoot).children[seed]; exists {
			continue
		}
		startLeaf := t.start.alloc(node{parent: t.startRoot, state: seed, children: map[int]NodeID{}, twin: NoNode})
		finishLeaf := t.finish.alloc(node{parent: t.finishRoot, state: seed, children: map[int]NodeID{}, twin: NoNode})
		t.start.get(startLeaf).twin = finishLeaf
		t.finish.get(finishLeaf).twin = startLeaf
		t.start.get(t.startRoot).children[seed] = startLeaf
		t.finish.get(t.finishRoot).children[seed] = finishLeaf
	}

	return t
}

// addNode places node id as a child of parentID in arena ar, keyed by its
// own state. If a child already occupies that state slot, id's own
// children are merged into the existing occupant recursively (the
// occupant is the survivor; id itself is discarded) rather than
// overwriting it, so no live hypothesis is ever silently dropped.
func (ar *arena) addNode(parentID, id NodeID) {
	n := ar.get(id)
	parent := ar.get(parentID)
	existing, ok := parent.children[n.state]
	if !ok || existing == id {
		parent.children[n.state] = id
		n.parent = parentID
		return
	}
	// Merge id's subtree into existing: reparent each grandchild.
	for _, childID := range childIDs(n.children) {
		ar.addNode(existing, childID)
	}
	// id may itself carry output (a leaf that captured text, or a live
	// node that kept its buffer across a push and so has children); it
	// is merged into the survivor's buffer.
	if n.hasOutput {
		ex := ar.get(existing)
		ex.output = joinOutput(ex.output, n.output)
		ex.hasOutput = ex.hasOutput || n.hasOutput
	}
}

func childIDs(m map[int]NodeID) []NodeID {
	ids := make([]NodeID, 0, len(m))
	for _, id := range m {
		ids = append(ids, id)
	}
	return ids
}

func joinOutput(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " " + b
}

// pushFinish turns the hypothesis recorded in entry into a historical
// record (cloned off to the side, carrying forward its old children and,
// if it was a leaf, its twin link) and reuses entry's NodeID as the
// now-live node at toState — this keeps output buffers and twin
// bookkeeping attached to a stable NodeID across a push. entry.id is
// addressed directly, not by re-reading entry.state out of the root's
// children map, since a sibling entry processed earlier in the same batch
// may already have claimed that key (a push's target state can collide
// with another live hypothesis's current state).
func (t *Tree) pushFinish(entry rootEntry, toState int) NodeID {
	liveID := entry.id
	live := t.finish.get(liveID)
	oldChildren := live.children
	oldTwin := live.twin
	wasLeaf := len(oldChildren) == 0

	historical := node{state: entry.state, children: oldChildren, twin: NoNode}
	if wasLeaf {
		historical.twin = oldTwin
	}
	historicalID := t.finish.alloc(historical)
	for _, cid := range childIDs(oldChildren) {
		t.finish.get(cid).parent = historicalID
	}

	live.state = toState
	live.children = map[int]NodeID{entry.state: historicalID}
	live.twin = NoNode
	t.finish.get(historicalID).parent = liveID

	if wasLeaf && oldTwin != NoNode {
		t.start.get(oldTwin).twin = historicalID
		t.finish.get(historicalID).twin = oldTwin
	}

	t.finish.addNode(t.finishRoot, liveID)
	return liveID
}

// HandleOpen processes a start-tag event named name. Every hypothesis
// currently live at the root of the finish tree is advanced independently:
// a hypothesis whose current state has a forward edge labeled name moves
// to that edge's target; every other hypothesis is pushed into the
// overflow sink (state 0), recording that an unrelated element was opened
// while that hypothesis was active.
//
// All live entries are snapshotted and cleared from the root's children
// up front, before any of them is transformed. Pushing one hypothesis can
// land it on the very state key another hypothesis currently occupies (a
// transition's target and a sibling's current state can coincide); clearing
// every key first means no push's root insertion can be mistaken, mid-batch,
// for the slot a not-yet-processed sibling still expects to read.
func (t *Tree) HandleOpen(name string) {
	entries := t.liveRootStates()
	root := t.finish.get(t.finishRoot)
	for _, e := range entries {
		delete(root.children, e.state)
	}
	for _, e := range entries {
		next, ok := t.auto.Forward(e.state, name)
		if !ok {
			next = 0
		}
		t.pushFinish(e, next)
	}
}

type rootEntry struct {
	state int
	id    NodeID
}

// liveRootStates snapshots the finish root's children before any mutation,
// since HandleOpen/HandleClose push entries out of the root map as they
// process them and must not iterate a map they're simultaneously editing.
func (t *Tree) liveRootStates() []rootEntry {
	children := t.finish.get(t.finishRoot).children
	entries := make([]rootEntry, 0, len(children))
	for s, id := range children {
		entries = append(entries, rootEntry{state: s, id: id})
	}
	return entries
}

// HandleClose processes an end-tag event named name. Each live hypothesis
// is resolved independently:
//
//   - a hypothesis parked in overflow (state 0) pops out of overflow,
//     since the close simply matches whatever open most recently pushed it
//     there;
//   - a hypothesis sitting exactly at the reverse edge's begin state pops
//     back to end, either by finding a grandchild already recorded there
//     (the matching open was seen earlier in this same chunk) or, if not,
//     by growing the start tree backwards to record that the chunk must
//     have begun already past this element's open tag;
//   - any other hypothesis is left untouched (this close tag is irrelevant
//     to it; it is still waiting for its own expected close).
func (t *Tree) HandleClose(name string) {
	begin, end, hasEdge := t.auto.Reverse(name)

	// Draining overflow first, to completion, before re-reading whatever
	// ends up at `begin` avoids a race between two root entries that
	// both want to settle at the same state key: overflow's drained
	// children may merge into the very node popMatched is about to pop,
	// and the merge must be visible to it, not raced against it.
	if overflowID, ok := t.finish.get(t.finishRoot).children[0]; ok {
		t.popOverflow(overflowID)
	}

	if !hasEdge {
		return
	}
	if nodeID, ok := t.finish.get(t.finishRoot).children[begin]; ok {
		t.popMatched(nodeID, begin, end)
	}
}

// popOverflow releases a hypothesis out of the overflow sink. The node
// parked at state 0 may have accumulated several children of its own (if
// more than one further open/close pair happened while in overflow); each
// is reinserted at the root keyed by its own state, re-merging with any
// sibling hypothesis already there.
func (t *Tree) popOverflow(id NodeID) {
	delete(t.finish.get(t.finishRoot).children, 0)
	n := t.finish.get(id)
	for _, cid := range childIDs(n.children) {
		t.finish.addNode(t.finishRoot, cid)
	}
}

// popMatched resolves a hypothesis sitting at the reverse edge's begin
// state. If a grandchild already exists at end (this element's open was
// already witnessed within the chunk), that grandchild's subtree is
// promoted to the root, carrying forward id's buffered output onto it.
// Otherwise the hypothesis must have begun before the chunk's first byte,
// already past this element's open tag: growSpeculative extends the start
// tree to record that.
func (t *Tree) popMatched(id NodeID, begin, end int) {
	n := t.finish.get(id)
	grandchildID, ok := n.children[end]
	if !ok {
		t.growSpeculative(id, begin)
		return
	}

	grandchild := t.finish.get(grandchildID)
	grandchild.output = joinOutput(n.output, grandchild.output)
	grandchild.hasOutput = grandchild.hasOutput || n.hasOutput

	delete(n.children, end)
	grandchild.parent = NoNode

	if len(n.children) == 0 {
		delete(t.finish.get(t.finishRoot).children, begin)
	}
	t.finish.addNode(t.finishRoot, grandchildID)
}

// growSpeculative extends the start tree backwards for every leaf of the
// finish-tree subtree rooted at the hypothesis sitting at state s. Merges
// earlier in the chunk can cause several originally distinct pasts to
// share one finish-tree state, so every leaf (not just one) must gain its
// own new, earlier start-tree ancestor.
func (t *Tree) growSpeculative(finishNodeID NodeID, s int) {
	for _, leafID := range t.collectLeaves(&t.finish, finishNodeID) {
		leaf := t.finish.get(leafID)
		oldStartLeaf := leaf.twin
		if oldStartLeaf == NoNode {
			continue
		}
		newStartID := t.start.alloc(node{
			parent:   oldStartLeaf,
			state:    s,
			children: map[int]NodeID{},
			twin:     leafID,
		})
		t.start.get(oldStartLeaf).children[s] = newStartID
		leaf.twin = newStartID
	}
}

// collectLeaves returns every leaf NodeID in ar reachable from id
// (including id itself if it has no children).
func (t *Tree) collectLeaves(ar *arena, id NodeID) []NodeID {
	n := ar.get(id)
	if len(n.children) == 0 {
		return []NodeID{id}
	}
	var leaves []NodeID
	for _, cid := range childIDs(n.children) {
		leaves = append(leaves, t.collectLeaves(ar, cid)...)
	}
	return leaves
}

// HandleText attaches character data to whichever live hypothesis is
// shallowest among the root's current children (the least-overflowed,
// most-likely-correct hypothesis), provided it sits in the automaton's
// output state. Text is discarded when that shallowest non-overflow
// hypothesis is not at the output state (even if a deeper one is), or
// when only overflow is live.
func (t *Tree) HandleText(text string) {
	entries := t.liveRootStates()
	if len(entries) == 0 {
		return
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.state > 0 && (best.state == 0 || e.state < best.state) {
			best = e
		}
	}
	if best.state == 0 || !t.auto.IsOutputState(best.state) {
		return
	}
	n := t.finish.get(best.id)
	n.output = joinOutput(n.output, text)
	n.hasOutput = true
}

// Harvest reads off the surviving hypothesis at end of chunk: its entry
// state and stack of states traversed in the start tree (recording what
// had to already be open before the chunk began), its final state and
// stack in the finish tree, and any buffered output.
//
// When more than one finish-tree root child remains, the survivor is
// chosen once, from the finish tree: a hypothesis that actually captured
// output is preferred over one that merely survived by never being
// contradicted, and among equals the shallowest non-overflow state wins,
// since it required the fewest unverified assumptions. Its start-tree
// side is found through the twin link of the deepest node on its
// finish-tree chain: a push moves a hypothesis to a new finish-root key,
// so its start-tree root key differs once an element has been opened.
func (t *Tree) Harvest() Result {
	key := winningKey(&t.finish, t.finishRoot)

	startKey := key
	if id, ok := t.finish.get(t.finishRoot).children[key]; ok {
		for next := deepestChild(&t.finish, id); next != NoNode; next = deepestChild(&t.finish, next) {
			id = next
		}
		for s := t.finish.get(id).twin; s != NoNode; s = t.start.get(s).parent {
			if t.start.get(s).parent == t.startRoot {
				startKey = t.start.get(s).state
				break
			}
		}
	}
	beginState, beginStack := t.harvestSide(&t.start, t.startRoot, startKey)
	endState, endStack, output, hasOutput := t.harvestFinish(key)
	return Result{
		BeginState: beginState,
		BeginStack: beginStack,
		EndState:   endState,
		EndStack:   endStack,
		Output:     output,
		HasOutput:  hasOutput,
	}
}

// Result is the per-chunk outcome a worker harvests from its Tree. See
// package xpresult for the shared wire-level representation merged across
// chunks; this local type exists so dualtree has no dependency on it.
type Result struct {
	BeginState int
	BeginStack []int
	EndState   int
	EndStack   []int
	Output     string
	HasOutput  bool
}

// harvestSide walks the root child keyed by key down to its deepest
// descendant in ar and returns its deepest state plus the full stack of
// states passed through, root-to-leaf.
func (t *Tree) harvestSide(ar *arena, rootID NodeID, key int) (int, []int) {
	id, ok := ar.get(rootID).children[key]
	if !ok {
		return 0, nil
	}
	var stack []int
	for id != NoNode {
		stack = append(stack, ar.get(id).state)
		id = deepestChild(ar, id)
	}
	return stack[len(stack)-1], stack
}

// deepestChild returns id's single child if it has exactly one, else
// NoNode (a branch point should not occur on the surviving path, since a
// hypothesis only ever grows one historical/speculative chain deep).
func deepestChild(ar *arena, id NodeID) NodeID {
	n := ar.get(id)
	if len(n.children) != 1 {
		return NoNode
	}
	for _, cid := range n.children {
		return cid
	}
	return NoNode
}

// harvestFinish walks the finish tree's root child keyed by key down to
// its deepest descendant, accumulating the state stack and any output
// buffered along the way. Unlike the start tree, the finish tree's root
// child always holds the current state: pushFinish retargets the live
// node to the new state and demotes the old one to a historical child
// one level deeper, so the walk produces [current, ..., oldest] rather
// than [oldest, ..., current]. The end state is therefore the root
// child's own state, stack[0], not the deepest entry.
func (t *Tree) harvestFinish(key int) (state int, stack []int, output string, hasOutput bool) {
	id, ok := t.finish.get(t.finishRoot).children[key]
	if !ok {
		return 0, nil, "", false
	}
	for id != NoNode {
		n := t.finish.get(id)
		stack = append(stack, n.state)
		if n.hasOutput {
			output = joinOutput(output, n.output)
			hasOutput = true
		}
		id = deepestChild(&t.finish, id)
	}
	return stack[0], stack, output, hasOutput
}

// winningKey picks which root child's state key should be harvested.
// Any subtree carrying output wins outright, since that is direct
// evidence the hypothesis lines up with the document; among hypotheses
// with no output (or several that both have some), the shallowest
// non-overflow state wins; overflow (state 0) is the last resort.
func winningKey(ar *arena, rootID NodeID) int {
	children := ar.get(rootID).children
	bestKey := -1
	bestHasOutput := false
	for s, id := range children {
		has := subtreeHasOutput(ar, id)
		switch {
		case bestKey == -1:
			bestKey, bestHasOutput = s, has
		case has && !bestHasOutput:
			bestKey, bestHasOutput = s, has
		case has == bestHasOutput:
			if (bestKey == 0 && s != 0) || (s != 0 && s < bestKey) {
				bestKey = s
			}
		}
	}
	return bestKey
}

// subtreeHasOutput reports whether any node in id's subtree carries
// buffered output.
func subtreeHasOutput(ar *arena, id NodeID) bool {
	n := ar.get(id)
	if n.hasOutput {
		return true
	}
	for _, cid := range childIDs(n.children) {
		if subtreeHasOutput(ar, cid) {
			return true
		}
	}
	return false
}

// String renders a Tree's two roots for debugging.
func (t *Tree) String() string {
	startChildren := t.start.get(t.startRoot).children
	finishChildren := t.finish.get(t.finishRoot).children
	return fmt.Sprintf("start:%v finish:%v", startChildren, finishChildren)
}
