package explore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog"

	"myrmex/internal/model"
)

// TCP frame header: magic u32, version u16, msg type u16, payload len u64.
const (
	wireMagic   uint32 = 0x4D595258
	wireVersion uint16 = 1

	frameHeaderLen  = 16
	maxFramePayload = 64 * 1024 * 1024
)

const (
	msgHello uint16 = iota + 1
	msgWelcome
	msgDispatchShard
	msgDispatchStop
	msgRecords
	msgFlag
)

var (
	ErrBadMagic     = errors.New("explore: bad frame magic")
	ErrBadVersion   = errors.New("explore: unsupported frame version")
	ErrFrameTooBig  = errors.New("explore: frame payload too large")
	ErrShortFrame   = errors.New("explore: short frame header")
	ErrGroupTooSmall = errors.New("explore: process group needs at least one rank")
)

// TCPTransport runs the process group over TCP: the root listens and every
// worker dials in, receiving its rank assignment in a welcome frame. All
// collective payloads travel through the wire codec, so worker binaries only
// need the record layout to participate.
type TCPTransport struct {
	rank   int
	size   int
	conns  []net.Conn // root: by rank, nil at index 0
	conn   net.Conn   // worker: link to the root
	limits Limits
	log    zerolog.Logger
}

// TCPListener is the root's bound socket, split from the accept phase so the
// dial address is known before any worker joins.
type TCPListener struct {
	l   net.Listener
	log zerolog.Logger
}

func Listen(ctx context.Context, addr string, log zerolog.Logger) (*TCPListener, error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{l: l, log: log}, nil
}

func (ln *TCPListener) Addr() net.Addr { return ln.l.Addr() }

func (ln *TCPListener) Close() error { return ln.l.Close() }

// Accept blocks until size-1 workers have joined and returns the root
// transport. A stalled worker stalls the accept loop; no timeouts are applied
// anywhere in the group.
func (ln *TCPListener) Accept(ctx context.Context, size int) (*TCPTransport, error) {
	if size <= 0 {
		return nil, ErrGroupTooSmall
	}

	t := &TCPTransport{
		rank:   0,
		size:   size,
		conns:  make([]net.Conn, size),
		limits: DefaultLimits(),
		log:    ln.log,
	}
	if size == 1 {
		return t, nil
	}

	stop := context.AfterFunc(ctx, func() { ln.l.Close() })
	defer stop()

	for rank := 1; rank < size; rank++ {
		conn, err := ln.l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				t.closeAll()
				return nil, ctx.Err()
			}
			t.closeAll()
			return nil, err
		}
		if err := t.welcome(conn, rank); err != nil {
			conn.Close()
			t.closeAll()
			return nil, err
		}
		t.conns[rank] = conn
		ln.log.Info().Int("rank", rank).Str("remote", conn.RemoteAddr().String()).Msg("worker joined")
	}
	return t, nil
}

// ListenAndAccept binds addr and waits for the whole group in one call.
func ListenAndAccept(ctx context.Context, addr string, size int, log zerolog.Logger) (*TCPTransport, error) {
	if size <= 0 {
		return nil, ErrGroupTooSmall
	}
	ln, err := Listen(ctx, addr, log)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	return ln.Accept(ctx, size)
}

func (t *TCPTransport) welcome(conn net.Conn, rank int) error {
	msgType, _, err := readFrame(conn)
	if err != nil {
		return err
	}
	if msgType != msgHello {
		return fmt.Errorf("%w: expected hello, got message type %d", ErrProtocol, msgType)
	}
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], uint32(rank))
	binary.BigEndian.PutUint32(payload[4:8], uint32(t.size))
	return writeFrame(conn, msgWelcome, payload)
}

// DialRoot joins the group as a worker and returns once the root has
// assigned a rank.
func DialRoot(ctx context.Context, addr string, log zerolog.Logger) (*TCPTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(conn, msgHello, nil); err != nil {
		conn.Close()
		return nil, err
	}
	msgType, payload, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if msgType != msgWelcome || len(payload) != 8 {
		conn.Close()
		return nil, fmt.Errorf("%w: malformed welcome", ErrProtocol)
	}
	rank := int(binary.BigEndian.Uint32(payload[0:4]))
	size := int(binary.BigEndian.Uint32(payload[4:8]))
	log.Info().Int("rank", rank).Int("size", size).Msg("joined process group")
	return &TCPTransport{
		rank:   rank,
		size:   size,
		conn:   conn,
		limits: DefaultLimits(),
		log:    log,
	}, nil
}

func (t *TCPTransport) Rank() int { return t.rank }
func (t *TCPTransport) Size() int { return t.size }

func (t *TCPTransport) Close() error {
	if t.conn != nil {
		return t.conn.Close()
	}
	t.closeAll()
	return nil
}

func (t *TCPTransport) closeAll() {
	for _, conn := range t.conns {
		if conn != nil {
			conn.Close()
		}
	}
}

func (t *TCPTransport) SendDispatch(ctx context.Context, to int, d Dispatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to <= 0 || to >= t.size || t.conns[to] == nil {
		return fmt.Errorf("%w: dispatch to invalid rank %d", ErrProtocol, to)
	}
	if d.Stop {
		return writeFrame(t.conns[to], msgDispatchStop, []byte(d.Reason))
	}
	return writeFrame(t.conns[to], msgDispatchShard, EncodeShard(d.Shard))
}

func (t *TCPTransport) RecvDispatch(ctx context.Context) (Dispatch, error) {
	if err := ctx.Err(); err != nil {
		return Dispatch{}, err
	}
	msgType, payload, err := readFrame(t.conn)
	if err != nil {
		return Dispatch{}, err
	}
	switch msgType {
	case msgDispatchStop:
		return Dispatch{Stop: true, Reason: model.StopReason(payload)}, nil
	case msgDispatchShard:
		shard, err := DecodeShard(payload, t.limits)
		if err != nil {
			return Dispatch{}, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		return Dispatch{Shard: shard}, nil
	default:
		return Dispatch{}, fmt.Errorf("%w: expected dispatch, got message type %d", ErrProtocol, msgType)
	}
}

func (t *TCPTransport) GatherRecords(ctx context.Context, local []model.GenerationRecord, counts []int) ([]model.GenerationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.rank != 0 {
		return nil, writeFrame(t.conn, msgRecords, EncodeRecords(local))
	}

	if len(counts) != t.size {
		return nil, fmt.Errorf("%w: gather counts for %d ranks, group size %d", ErrProtocol, len(counts), t.size)
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	gathered := make([]model.GenerationRecord, 0, total)
	for rank := 0; rank < t.size; rank++ {
		part := local
		if rank != 0 {
			msgType, payload, err := readFrame(t.conns[rank])
			if err != nil {
				return nil, err
			}
			if msgType != msgRecords {
				return nil, fmt.Errorf("%w: expected records from rank %d, got message type %d", ErrProtocol, rank, msgType)
			}
			part, err = DecodeRecords(payload, t.limits)
			if err != nil {
				return nil, fmt.Errorf("%w: rank %d: %v", ErrProtocol, rank, err)
			}
		}
		if len(part) != counts[rank] {
			return nil, fmt.Errorf("%w: rank %d gathered %d records, want %d", ErrProtocol, rank, len(part), counts[rank])
		}
		gathered = append(gathered, part...)
	}
	return gathered, nil
}

func (t *TCPTransport) BroadcastFlag(ctx context.Context, flag bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if t.rank == 0 {
		payload := []byte{0}
		if flag {
			payload[0] = 1
		}
		for rank := 1; rank < t.size; rank++ {
			if err := writeFrame(t.conns[rank], msgFlag, payload); err != nil {
				return false, err
			}
		}
		return flag, nil
	}
	msgType, payload, err := readFrame(t.conn)
	if err != nil {
		return false, err
	}
	if msgType != msgFlag || len(payload) != 1 {
		return false, fmt.Errorf("%w: malformed termination flag", ErrProtocol)
	}
	return payload[0] != 0, nil
}

func writeFrame(w io.Writer, msgType uint16, payload []byte) error {
	if uint64(len(payload)) > maxFramePayload {
		return ErrFrameTooBig
	}
	header := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint32(header[0:4], wireMagic)
	binary.BigEndian.PutUint16(header[4:6], wireVersion)
	binary.BigEndian.PutUint16(header[6:8], msgType)
	binary.BigEndian.PutUint64(header[8:16], uint64(len(payload)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func readFrame(r io.Reader) (uint16, []byte, error) {
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return 0, nil, ErrShortFrame
		}
		return 0, nil, err
	}
	if binary.BigEndian.Uint32(header[0:4]) != wireMagic {
		return 0, nil, ErrBadMagic
	}
	if binary.BigEndian.Uint16(header[4:6]) != wireVersion {
		return 0, nil, ErrBadVersion
	}
	msgType := binary.BigEndian.Uint16(header[6:8])
	payloadLen := binary.BigEndian.Uint64(header[8:16])
	if payloadLen > maxFramePayload {
		return 0, nil, ErrFrameTooBig
	}
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}
	return msgType, payload, nil
}
