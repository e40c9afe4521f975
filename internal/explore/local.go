package explore

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"myrmex/internal/model"
)

// localLink is the channel pair between the root and one rank.
type localLink struct {
	dispatch chan Dispatch
	gather   chan []model.GenerationRecord
	flag     chan bool
}

// ChannelTransport is the in-process Transport: every rank is a goroutine
// and the collective calls move typed values over channels. It backs both
// single-binary multi-worker runs and the coordinator unit tests.
type ChannelTransport struct {
	rank  int
	links []*localLink
}

// NewChannelGroup wires an in-process group of p ranks and returns one
// transport per rank, index = rank.
func NewChannelGroup(p int) []*ChannelTransport {
	links := make([]*localLink, p)
	for i := range links {
		links[i] = &localLink{
			dispatch: make(chan Dispatch, 1),
			gather:   make(chan []model.GenerationRecord, 1),
			flag:     make(chan bool, 1),
		}
	}
	group := make([]*ChannelTransport, p)
	for i := range group {
		group[i] = &ChannelTransport{rank: i, links: links}
	}
	return group
}

func (t *ChannelTransport) Rank() int { return t.rank }
func (t *ChannelTransport) Size() int { return len(t.links) }

func (t *ChannelTransport) SendDispatch(ctx context.Context, to int, d Dispatch) error {
	if to <= 0 || to >= len(t.links) {
		return fmt.Errorf("%w: dispatch to invalid rank %d", ErrProtocol, to)
	}
	select {
	case t.links[to].dispatch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *ChannelTransport) RecvDispatch(ctx context.Context) (Dispatch, error) {
	select {
	case d := <-t.links[t.rank].dispatch:
		return d, nil
	case <-ctx.Done():
		return Dispatch{}, ctx.Err()
	}
}

func (t *ChannelTransport) GatherRecords(ctx context.Context, local []model.GenerationRecord, counts []int) ([]model.GenerationRecord, error) {
	if t.rank != 0 {
		select {
		case t.links[t.rank].gather <- local:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(counts) != len(t.links) {
		return nil, fmt.Errorf("%w: gather counts for %d ranks, group size %d", ErrProtocol, len(counts), len(t.links))
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	gathered := make([]model.GenerationRecord, 0, total)
	for rank := 0; rank < len(t.links); rank++ {
		part := local
		if rank != 0 {
			select {
			case part = <-t.links[rank].gather:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if len(part) != counts[rank] {
			return nil, fmt.Errorf("%w: rank %d gathered %d records, want %d", ErrProtocol, rank, len(part), counts[rank])
		}
		gathered = append(gathered, part...)
	}
	return gathered, nil
}

func (t *ChannelTransport) BroadcastFlag(ctx context.Context, flag bool) (bool, error) {
	if t.rank == 0 {
		for rank := 1; rank < len(t.links); rank++ {
			select {
			case t.links[rank].flag <- flag:
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
		return flag, nil
	}
	select {
	case v := <-t.links[t.rank].flag:
		return v, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// LaunchGroup runs fn once per rank of a fresh in-process group, one
// goroutine per rank, and waits for the whole group.
func LaunchGroup(ctx context.Context, p int, fn func(ctx context.Context, t Transport) error) error {
	if p <= 0 {
		return fmt.Errorf("group size must be > 0")
	}
	group := NewChannelGroup(p)
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range group {
		g.Go(func() error {
			return fn(ctx, t)
		})
	}
	return g.Wait()
}
