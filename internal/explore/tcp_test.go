package explore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"myrmex/internal/model"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello frame")
	if err := writeFrame(&buf, msgRecords, payload); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	msgType, got, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if msgType != msgRecords {
		t.Errorf("message type = %d, want %d", msgType, msgRecords)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestReadFrameRejectsGarbage(t *testing.T) {
	if _, _, err := readFrame(bytes.NewReader([]byte("short"))); !errors.Is(err, ErrShortFrame) {
		t.Errorf("short header: got %v, want ErrShortFrame", err)
	}

	garbage := make([]byte, frameHeaderLen)
	if _, _, err := readFrame(bytes.NewReader(garbage)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("zero magic: got %v, want ErrBadMagic", err)
	}

	var buf bytes.Buffer
	if err := writeFrame(&buf, msgFlag, []byte{1}); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	frame := buf.Bytes()
	frame[5] = 99 // version low byte
	if _, _, err := readFrame(bytes.NewReader(frame)); !errors.Is(err, ErrBadVersion) {
		t.Errorf("bad version: got %v, want ErrBadVersion", err)
	}
}

// tcpGroup joins size ranks over a loopback listener and hands every rank's
// transport to fn.
func tcpGroup(t *testing.T, size int, fn func(ctx context.Context, tr Transport) error) {
	t.Helper()
	ctx := context.Background()
	ln, err := Listen(ctx, "127.0.0.1:0", zerolog.Nop())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	var g errgroup.Group
	g.Go(func() error {
		defer ln.Close()
		root, err := ln.Accept(ctx, size)
		if err != nil {
			return err
		}
		defer root.Close()
		return fn(ctx, root)
	})
	for i := 1; i < size; i++ {
		g.Go(func() error {
			worker, err := DialRoot(ctx, addr, zerolog.Nop())
			if err != nil {
				return err
			}
			defer worker.Close()
			return fn(ctx, worker)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("tcp group: %v", err)
	}
}

func TestTCPCollectives(t *testing.T) {
	shard := []string{"ind-a", "ind-b"}
	records := []model.GenerationRecord{
		{Generation: 1, Index: 0, Fitness: 0.5, Individual: "ind-a"},
		{Generation: 1, Index: 1, Fitness: 0.75, Individual: "ind-b"},
	}

	tcpGroup(t, 2, func(ctx context.Context, tr Transport) error {
		if tr.Size() != 2 {
			t.Errorf("rank %d sees group size %d, want 2", tr.Rank(), tr.Size())
		}
		if tr.Rank() == 0 {
			if err := tr.SendDispatch(ctx, 1, Dispatch{Shard: shard}); err != nil {
				return err
			}
			gathered, err := tr.GatherRecords(ctx, nil, []int{0, 2})
			if err != nil {
				return err
			}
			if len(gathered) != 2 {
				t.Errorf("gathered %d records, want 2", len(gathered))
			}
			for i := range records {
				if gathered[i] != records[i] {
					t.Errorf("gathered[%d] = %+v, want %+v", i, gathered[i], records[i])
				}
			}
			if _, err := tr.BroadcastFlag(ctx, true); err != nil {
				return err
			}
			return tr.SendDispatch(ctx, 1, Dispatch{Stop: true, Reason: model.StopReasonPopulationCollapse})
		}

		d, err := tr.RecvDispatch(ctx)
		if err != nil {
			return err
		}
		if d.Stop || len(d.Shard) != 2 || d.Shard[0] != "ind-a" || d.Shard[1] != "ind-b" {
			t.Errorf("worker dispatch = %+v, want shard %q", d, shard)
		}
		if _, err := tr.GatherRecords(ctx, records, nil); err != nil {
			return err
		}
		flag, err := tr.BroadcastFlag(ctx, false)
		if err != nil {
			return err
		}
		if !flag {
			t.Error("worker observed flag false, root broadcast true")
		}
		stop, err := tr.RecvDispatch(ctx)
		if err != nil {
			return err
		}
		if !stop.Stop || stop.Reason != model.StopReasonPopulationCollapse {
			t.Errorf("stop notice = %+v, want population collapse", stop)
		}
		return nil
	})
}

func TestTCPCoordinatorRun(t *testing.T) {
	const p, populationSize = 3, 5
	results := make([]Result, p)
	tcpGroup(t, p, func(ctx context.Context, tr Transport) error {
		c, err := New(counterConfig(populationSize))
		if err != nil {
			return err
		}
		res, err := c.Run(ctx, tr)
		if err != nil {
			return err
		}
		results[tr.Rank()] = res
		return nil
	})

	for rank, res := range results {
		if res.StopReason != model.StopReasonFitnessReached {
			t.Errorf("rank %d stopped with %q, want %q", rank, res.StopReason, model.StopReasonFitnessReached)
		}
		if res.Generations != 3 {
			t.Errorf("rank %d stopped in generation %d, want 3", rank, res.Generations)
		}
	}
	if len(results[0].History) != 3*populationSize {
		t.Fatalf("root history has %d records, want %d", len(results[0].History), 3*populationSize)
	}
	checkGlobalIndices(t, results[0].History, populationSize)
}

func TestListenAndAcceptSingleRank(t *testing.T) {
	tr, err := ListenAndAccept(context.Background(), "127.0.0.1:0", 1, zerolog.Nop())
	if err != nil {
		t.Fatalf("ListenAndAccept: %v", err)
	}
	defer tr.Close()
	if tr.Rank() != 0 || tr.Size() != 1 {
		t.Fatalf("rank %d size %d, want 0 and 1", tr.Rank(), tr.Size())
	}
}
