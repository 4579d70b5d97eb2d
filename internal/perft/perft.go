// Package perft counts move-generation leaf nodes, the standard oracle for
// validating a legal move generator against published totals.
package perft

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
)

// CountLeaves returns the number of leaf nodes depth plies below pos.
// pos is restored before returning.
func CountLeaves(pos *board.Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}

	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for _, m := range ml.Slice() {
		pos.MakeMove(m)
		nodes += CountLeaves(pos, depth-1)
		if err := pos.UndoMove(); err != nil {
			panic(err)
		}
	}
	return nodes
}

// DivideEntry is the leaf count below a single root move.
type DivideEntry struct {
	Move  board.Move
	Nodes uint64
}

// Divide returns the per-root-move leaf counts in generator order.
func Divide(pos *board.Position, depth int) []DivideEntry {
	moves := pos.LegalMoves().Slice()
	out := make([]DivideEntry, 0, len(moves))
	for _, m := range moves {
		pos.MakeMove(m)
		out = append(out, DivideEntry{Move: m, Nodes: CountLeaves(pos, depth-1)})
		if err := pos.UndoMove(); err != nil {
			panic(err)
		}
	}
	return out
}

// ParallelDivide is Divide with root moves spread over workers goroutines.
// Each goroutine walks its own Clone of pos; pos itself is never mutated.
// workers <= 0 uses GOMAXPROCS. Cancelling ctx abandons work not yet
// started and returns ctx's error.
func ParallelDivide(ctx context.Context, pos *board.Position, depth, workers int) ([]DivideEntry, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	moves := append([]board.Move(nil), pos.LegalMoves().Slice()...)
	out := make([]DivideEntry, len(moves))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range moves {
		i, m := i, m
		root := pos.Clone()
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			root.MakeMove(m)
			out[i] = DivideEntry{Move: m, Nodes: CountLeaves(root, depth-1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Total sums the node counts of a divide.
func Total(entries []DivideEntry) uint64 {
	var n uint64
	for _, e := range entries {
		n += e.Nodes
	}
	return n
}

// SortByMove orders entries by their coordinate notation, the layout most
// reference tools print.
func SortByMove(entries []DivideEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Move.String() < entries[j].Move.String()
	})
}
