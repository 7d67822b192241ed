package ssa

import "golang.org/x/exp/slices"

// livenessEntry is one (value, use-count) pair of a LivenessData
// association list.
type livenessEntry struct {
	Value ValueId
	Count uint32
}

// LivenessData is an association list from ValueId to a use-count
// (§4.6): the number of downstream uses live across all paths from a
// program point. Values never repeat; insertion order carries no
// meaning. Literal and Unreachable values are never tracked — callers
// must filter with isTrackedValue before inserting.
type LivenessData struct {
	entries []livenessEntry
}

// NewLivenessData returns an empty association list.
func NewLivenessData() *LivenessData { return &LivenessData{} }

func (d *LivenessData) index(v ValueId) int {
	return slices.IndexFunc(d.entries, func(e livenessEntry) bool { return e.Value == v })
}

// Contains reports whether v has a tracked use-count.
func (d *LivenessData) Contains(v ValueId) bool { return d.index(v) >= 0 }

// Count returns v's use-count, or 0 if untracked.
func (d *LivenessData) Count(v ValueId) uint32 {
	if i := d.index(v); i >= 0 {
		return d.entries[i].Count
	}
	return 0
}

// Insert adds c (default 1) to v's use-count, creating an entry if one
// doesn't already exist.
func (d *LivenessData) Insert(v ValueId, c uint32) {
	if c == 0 {
		return
	}
	if i := d.index(v); i >= 0 {
		d.entries[i].Count += c
		return
	}
	d.entries = append(d.entries, livenessEntry{Value: v, Count: c})
}

// Erase removes v's entry regardless of its current count.
func (d *LivenessData) Erase(v ValueId) {
	if i := d.index(v); i >= 0 {
		d.entries = append(d.entries[:i], d.entries[i+1:]...)
	}
}

// Remove decrements v's use-count by c, erasing the entry once it
// reaches zero.
func (d *LivenessData) Remove(v ValueId, c uint32) {
	i := d.index(v)
	if i < 0 {
		return
	}
	if d.entries[i].Count <= c {
		d.Erase(v)
		return
	}
	d.entries[i].Count -= c
}

// Clone returns an independent copy.
func (d *LivenessData) Clone() *LivenessData {
	return &LivenessData{entries: append([]livenessEntry(nil), d.entries...)}
}

// Values returns the tracked ValueIds, in no particular order.
func (d *LivenessData) Values() []ValueId {
	out := make([]ValueId, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.Value
	}
	return out
}

// AddAll implements the union operator `+=`: sums rhs's counts into d.
func (d *LivenessData) AddAll(rhs *LivenessData) {
	for _, e := range rhs.entries {
		d.Insert(e.Value, e.Count)
	}
}

// SubAll implements the difference operator `-=`: drops from d any value
// present in rhs, regardless of count.
func (d *LivenessData) SubAll(rhs *LivenessData) {
	for _, e := range rhs.entries {
		d.Erase(e.Value)
	}
}

// MaxUnion folds rhs into d, keeping the per-value maximum of the two
// counts — models path joins where each incoming branch may contribute
// a value independently (§4.6).
func (d *LivenessData) MaxUnion(rhs *LivenessData) {
	for _, e := range rhs.entries {
		if i := d.index(e.Value); i >= 0 {
			if e.Count > d.entries[i].Count {
				d.entries[i].Count = e.Count
			}
		} else {
			d.entries = append(d.entries, e)
		}
	}
}

func isTrackedValue(g *SSACFG, id ValueId) bool {
	info, ok := g.ValueInfoOf(id)
	if !ok {
		return false
	}
	return info.Kind != KindLiteral && info.Kind != KindUnreachable
}

// Liveness holds the per-block and per-operation results of running
// Algorithms 9.2 and 9.3 of Rastello over an SSACFG (§4.6).
type Liveness struct {
	g      *SSACFG
	topo   *Topology
	forest *LoopForest

	liveIn  map[BlockId]*LivenessData
	liveOut map[BlockId]*LivenessData

	// opLiveOut[b][i] is the live set immediately after operation i of
	// block b (aligned with b.Operations).
	opLiveOut map[BlockId][]*LivenessData
}

// ComputeLiveness runs the DAG DFS over topo's post-order, then closes
// liveness across back edges with the loop-tree DFS, then materializes
// per-operation live-out vectors.
func ComputeLiveness(g *SSACFG, topo *Topology, forest *LoopForest) *Liveness {
	l := &Liveness{
		g: g, topo: topo, forest: forest,
		liveIn:    make(map[BlockId]*LivenessData),
		liveOut:   make(map[BlockId]*LivenessData),
		opLiveOut: make(map[BlockId][]*LivenessData),
	}
	for _, b := range topo.PostOrder {
		l.visitBlock(b)
	}
	for _, h := range forest.LoopNodes() {
		l.propagateLoop(h)
	}
	for _, b := range topo.PostOrder {
		l.computeOperationLiveOut(b)
	}
	return l
}

// visitBlock runs Algorithm 9.2's per-block step.
func (l *Liveness) visitBlock(b BlockId) {
	blk := l.g.Block(b)
	live := NewLivenessData()

	for _, s := range blk.Exit.Successors() {
		if l.topo.BackEdge(b, s) {
			continue
		}
		succ := l.g.Block(s)
		if idx, ok := succ.EntryIndex(b); ok {
			for _, phiID := range succ.Phis {
				p := l.g.phis[phiID]
				if idx < len(p.Arguments) {
					arg := p.Arguments[idx]
					if isTrackedValue(l.g, arg) {
						live.Insert(arg, 1)
					}
				}
			}
		}
		if sIn, ok := l.liveIn[s]; ok {
			rest := sIn.Clone()
			for _, phiID := range succ.Phis {
				rest.Erase(phiID)
			}
			live.MaxUnion(rest)
		}
	}

	if blk.Exit.Kind == ExitFunctionReturn {
		for _, v := range blk.Exit.ReturnValues {
			if isTrackedValue(l.g, v) {
				live.Insert(v, 1)
			}
		}
	}

	l.liveOut[b] = live.Clone()

	for _, v := range blk.Exit.Operands() {
		if isTrackedValue(l.g, v) {
			live.Insert(v, 1)
		}
	}

	for i := len(blk.Operations) - 1; i >= 0; i-- {
		op := blk.Operations[i]
		for _, out := range op.Outputs {
			live.Erase(out)
		}
		for _, in := range op.Inputs {
			if isTrackedValue(l.g, in) {
				live.Insert(in, 1)
			}
		}
	}

	for _, phiID := range blk.Phis {
		live.Insert(phiID, 1)
	}
	l.liveIn[b] = live
}

// propagateLoop runs Algorithm 9.3 for a single loop header h.
func (l *Liveness) propagateLoop(h BlockId) {
	liveLoop := l.liveIn[h].Clone()
	for _, phiID := range l.g.Block(h).Phis {
		liveLoop.Erase(phiID)
	}
	l.liveOut[h].MaxUnion(liveLoop)
	for _, d := range l.forest.Descendants(h) {
		l.liveIn[d].MaxUnion(liveLoop)
		l.liveOut[d].MaxUnion(liveLoop)
	}
}

func (l *Liveness) computeOperationLiveOut(b BlockId) {
	blk := l.g.Block(b)
	live := l.liveOut[b].Clone()
	for _, v := range blk.Exit.Operands() {
		if isTrackedValue(l.g, v) {
			live.Insert(v, 1)
		}
	}

	out := make([]*LivenessData, len(blk.Operations))
	for i := len(blk.Operations) - 1; i >= 0; i-- {
		out[i] = live.Clone()
		op := blk.Operations[i]
		for _, o := range op.Outputs {
			live.Erase(o)
		}
		for _, in := range op.Inputs {
			if isTrackedValue(l.g, in) {
				live.Insert(in, 1)
			}
		}
	}
	l.opLiveOut[b] = out
}

// LiveIn returns the live-in set of b.
func (l *Liveness) LiveIn(b BlockId) *LivenessData { return l.liveIn[b] }

// LiveOut returns the live-out set of b.
func (l *Liveness) LiveOut(b BlockId) *LivenessData { return l.liveOut[b] }

// OperationsLiveOut returns, per operation of b (aligned by index), the
// live set immediately after that operation.
func (l *Liveness) OperationsLiveOut(b BlockId) []*LivenessData { return l.opLiveOut[b] }

// Used returns liveIn(b) − liveOut(b): values live entering b but not
// leaving it.
func (l *Liveness) Used(b BlockId) *LivenessData {
	d := l.liveIn[b].Clone()
	d.SubAll(l.liveOut[b])
	return d
}
