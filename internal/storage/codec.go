package storage

import (
	"encoding/json"
	"errors"

	"myrmex/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRunSummary(run model.RunSummary) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRunSummary(data []byte) (model.RunSummary, error) {
	var run model.RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return run, nil
}

func EncodeHistory(history []model.GenerationRecord) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeHistory(data []byte) ([]model.GenerationRecord, error) {
	var history []model.GenerationRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeBest(best model.GenerationRecord) ([]byte, error) {
	return json.Marshal(best)
}

func DecodeBest(data []byte) (model.GenerationRecord, error) {
	var best model.GenerationRecord
	if err := json.Unmarshal(data, &best); err != nil {
		return model.GenerationRecord{}, err
	}
	return best, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
