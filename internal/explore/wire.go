package explore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"myrmex/internal/model"
)

// Wire layout of the fixed part of a GenerationRecord. The layout is
// described explicitly (name, offset, elementary type) so a
// heterogeneous-process transport can reconstruct records without sharing
// language-level reflection with the sender.
const (
	RecordWireSize = 12

	offGeneration = 0 // u32
	offIndex      = 4 // i32
	offFitness    = 8 // f32
)

var (
	ErrShortRecord     = errors.New("wire: short record block")
	ErrShortPayload    = errors.New("wire: short counted payload")
	ErrPayloadTooLarge = errors.New("wire: counted payload too large")
	ErrCountTooLarge   = errors.New("wire: element count too large")
)

// ElemKind is the elementary datatype of one record field.
type ElemKind uint8

const (
	ElemU32 ElemKind = iota + 1
	ElemI32
	ElemF32
)

// LayoutField describes one fixed-offset field of the record block.
type LayoutField struct {
	Name   string
	Offset int
	Kind   ElemKind
}

// RecordLayout returns the serialization descriptor for GenerationRecord.
// The individual's parameter payload is not part of the fixed layout; it
// travels separately as a counted byte buffer because its length is
// data-dependent.
func RecordLayout() []LayoutField {
	return []LayoutField{
		{Name: "generation", Offset: offGeneration, Kind: ElemU32},
		{Name: "index", Offset: offIndex, Kind: ElemI32},
		{Name: "fitness", Offset: offFitness, Kind: ElemF32},
	}
}

// Limits constrains decode memory use.
type Limits struct {
	MaxElementBytes uint32
	MaxElementCount uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxElementBytes: 8 * 1024 * 1024,
		MaxElementCount: 1 << 20,
	}
}

func appendRecordBlock(buf []byte, rec model.GenerationRecord) []byte {
	var block [RecordWireSize]byte
	binary.BigEndian.PutUint32(block[offGeneration:], rec.Generation)
	binary.BigEndian.PutUint32(block[offIndex:], uint32(rec.Index))
	binary.BigEndian.PutUint32(block[offFitness:], math.Float32bits(rec.Fitness))
	return append(buf, block[:]...)
}

func decodeRecordBlock(b []byte) (model.GenerationRecord, error) {
	if len(b) < RecordWireSize {
		return model.GenerationRecord{}, ErrShortRecord
	}
	return model.GenerationRecord{
		Generation: binary.BigEndian.Uint32(b[offGeneration:]),
		Index:      int32(binary.BigEndian.Uint32(b[offIndex:])),
		Fitness:    math.Float32frombits(binary.BigEndian.Uint32(b[offFitness:])),
	}, nil
}

func appendCounted(buf []byte, data []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	buf = append(buf, n[:]...)
	return append(buf, data...)
}

func readCounted(b []byte, limits Limits) (data []byte, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, ErrShortPayload
	}
	n := binary.BigEndian.Uint32(b)
	if n > limits.MaxElementBytes {
		return nil, nil, ErrPayloadTooLarge
	}
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, ErrShortPayload
	}
	return b[:n], b[n:], nil
}

// EncodeShard serializes an ordered list of individuals.
func EncodeShard(shard []string) []byte {
	buf := make([]byte, 0, 4+len(shard)*8)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(shard)))
	buf = append(buf, n[:]...)
	for _, individual := range shard {
		buf = appendCounted(buf, []byte(individual))
	}
	return buf
}

func DecodeShard(b []byte, limits Limits) ([]string, error) {
	if len(b) < 4 {
		return nil, ErrShortPayload
	}
	count := binary.BigEndian.Uint32(b)
	if count > limits.MaxElementCount {
		return nil, ErrCountTooLarge
	}
	b = b[4:]
	shard := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		data, rest, err := readCounted(b, limits)
		if err != nil {
			return nil, fmt.Errorf("shard element %d: %w", i, err)
		}
		shard = append(shard, string(data))
		b = rest
	}
	return shard, nil
}

// EncodeRecords serializes generation records: per record the fixed layout
// block followed by the counted individual payload.
func EncodeRecords(records []model.GenerationRecord) []byte {
	buf := make([]byte, 0, 4+len(records)*(RecordWireSize+8))
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(records)))
	buf = append(buf, n[:]...)
	for _, rec := range records {
		buf = appendRecordBlock(buf, rec)
		buf = appendCounted(buf, []byte(rec.Individual))
	}
	return buf
}

func DecodeRecords(b []byte, limits Limits) ([]model.GenerationRecord, error) {
	if len(b) < 4 {
		return nil, ErrShortPayload
	}
	count := binary.BigEndian.Uint32(b)
	if count > limits.MaxElementCount {
		return nil, ErrCountTooLarge
	}
	b = b[4:]
	records := make([]model.GenerationRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		rec, err := decodeRecordBlock(b)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		b = b[RecordWireSize:]
		data, rest, err := readCounted(b, limits)
		if err != nil {
			return nil, fmt.Errorf("record %d payload: %w", i, err)
		}
		rec.Individual = string(data)
		records = append(records, rec)
		b = rest
	}
	return records, nil
}
