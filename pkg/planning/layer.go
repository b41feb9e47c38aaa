package planning

import (
	"slices"

	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the layer size below which mutexes are always
// computed on the calling goroutine.
const parallelThreshold = 64

// layer holds the bookkeeping shared by literal and action layers: the node
// ids present at one depth, edges to the previous layer, and a dense
// symmetric mutex matrix indexed by position in ids.
type layer struct {
	// level is the depth of this layer in its graph
	level int

	// ids holds the node ids present in this layer, sorted once finalized
	ids []int

	// index maps a node id to its position in ids
	index map[int]int

	// parents maps a node id to the connected ids in the previous layer
	parents map[int][]int

	// mutex is an len(ids)*len(ids) matrix; nil until mutexes are computed
	mutex []bool

	// mutexCount is the number of unordered mutex pairs
	mutexCount int
}

func newLayer(level int) layer {
	return layer{
		level:   level,
		ids:     make([]int, 0),
		index:   make(map[int]int),
		parents: make(map[int][]int),
	}
}

// add inserts id if absent.
func (l *layer) add(id int) {
	if _, ok := l.index[id]; ok {
		return
	}
	l.index[id] = len(l.ids)
	l.ids = append(l.ids, id)
}

// addParent records an edge from id to a node of the previous layer.
func (l *layer) addParent(id, parent int) {
	l.parents[id] = append(l.parents[id], parent)
}

// finalize sorts the node set. It must run before mutexes are computed.
func (l *layer) finalize() {
	slices.Sort(l.ids)
	for i, id := range l.ids {
		l.index[id] = i
	}
	for id, ps := range l.parents {
		slices.Sort(ps)
		l.parents[id] = slices.Compact(ps)
	}
}

func (l *layer) contains(id int) bool {
	_, ok := l.index[id]
	return ok
}

func (l *layer) isMutex(a, b int) bool {
	if a == b || l.mutex == nil {
		return false
	}
	ia, ok := l.index[a]
	if !ok {
		return false
	}
	ib, ok := l.index[b]
	if !ok {
		return false
	}
	return l.mutex[ia*len(l.ids)+ib]
}

// computeMutexes evaluates test once per unordered pair of distinct nodes.
// With more than one worker, rows of the matrix are distributed over an
// errgroup; every cell is written by exactly one goroutine.
func (l *layer) computeMutexes(workers int, test func(a, b int) bool) {
	n := len(l.ids)
	l.mutex = make([]bool, n*n)
	l.mutexCount = 0

	row := func(i int) int {
		count := 0
		for j := i + 1; j < n; j++ {
			if test(l.ids[i], l.ids[j]) {
				l.mutex[i*n+j] = true
				l.mutex[j*n+i] = true
				count++
			}
		}
		return count
	}

	if workers <= 1 || n < parallelThreshold {
		for i := 0; i < n; i++ {
			l.mutexCount += row(i)
		}
		return
	}

	counts := make([]int, n)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			counts[i] = row(i)
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range counts {
		l.mutexCount += c
	}
}

// equal reports whether both layers hold the same nodes and the same mutex pairs.
func (l *layer) equal(other *layer) bool {
	if !slices.Equal(l.ids, other.ids) {
		return false
	}
	if l.mutexCount != other.mutexCount {
		return false
	}
	if l.mutex == nil || other.mutex == nil {
		return l.mutex == nil && other.mutex == nil
	}
	return slices.Equal(l.mutex, other.mutex)
}

// mutexPairs returns every unordered mutex pair as (smaller id, larger id).
func (l *layer) mutexPairs() [][2]int {
	pairs := make([][2]int, 0, l.mutexCount)
	if l.mutex == nil {
		return pairs
	}
	n := len(l.ids)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if l.mutex[i*n+j] {
				pairs = append(pairs, [2]int{l.ids[i], l.ids[j]})
			}
		}
	}
	return pairs
}
