package explore

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"myrmex/internal/model"
)

func TestRecordLayout(t *testing.T) {
	require.Equal(t, []LayoutField{
		{Name: "generation", Offset: 0, Kind: ElemU32},
		{Name: "index", Offset: 4, Kind: ElemI32},
		{Name: "fitness", Offset: 8, Kind: ElemF32},
	}, RecordLayout())
}

func TestShardRoundTrip(t *testing.T) {
	shards := [][]string{
		{},
		{""},
		{"alpha"},
		{"alpha", "", "gamma with spaces", string([]byte{0, 1, 2, 255})},
	}
	for _, shard := range shards {
		decoded, err := DecodeShard(EncodeShard(shard), DefaultLimits())
		require.NoError(t, err)
		require.Equal(t, shard, decoded)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	records := []model.GenerationRecord{
		{Generation: 1, Index: 0, Fitness: 0.25, Individual: "a"},
		{Generation: 1, Index: -1, Fitness: -3.5, Individual: ""},
		{Generation: 4_000_000_000, Index: 2147483647, Fitness: 1, Individual: "long payload here"},
	}
	decoded, err := DecodeRecords(EncodeRecords(records), DefaultLimits())
	require.NoError(t, err)
	require.Equal(t, records, decoded)
}

func TestDecodeShardShortPayload(t *testing.T) {
	_, err := DecodeShard(nil, DefaultLimits())
	require.ErrorIs(t, err, ErrShortPayload)

	// Count says one element but the counted buffer is missing.
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], 1)
	_, err = DecodeShard(buf[:], DefaultLimits())
	require.ErrorIs(t, err, ErrShortPayload)

	// Element length runs past the end of the buffer.
	truncated := EncodeShard([]string{"abcdef"})
	_, err = DecodeShard(truncated[:len(truncated)-2], DefaultLimits())
	require.ErrorIs(t, err, ErrShortPayload)
}

func TestDecodeShardCountTooLarge(t *testing.T) {
	limits := Limits{MaxElementBytes: 16, MaxElementCount: 2}
	_, err := DecodeShard(EncodeShard([]string{"a", "b", "c"}), limits)
	require.ErrorIs(t, err, ErrCountTooLarge)
}

func TestDecodeShardPayloadTooLarge(t *testing.T) {
	limits := Limits{MaxElementBytes: 4, MaxElementCount: 16}
	_, err := DecodeShard(EncodeShard([]string{"more than four"}), limits)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecodeRecordsShortBlock(t *testing.T) {
	// Count says one record but only half a record block follows.
	buf := make([]byte, 4+RecordWireSize/2)
	binary.BigEndian.PutUint32(buf, 1)
	_, err := DecodeRecords(buf, DefaultLimits())
	require.ErrorIs(t, err, ErrShortRecord)
}

func TestDecodeRecordsTruncatedPayload(t *testing.T) {
	buf := EncodeRecords([]model.GenerationRecord{
		{Generation: 1, Index: 0, Fitness: 0.5, Individual: "abcdef"},
	})
	_, err := DecodeRecords(buf[:len(buf)-3], DefaultLimits())
	require.ErrorIs(t, err, ErrShortPayload)
}
