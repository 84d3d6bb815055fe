package kpi

import (
	"encoding/json"
	"fmt"
)

// MarshalBlob encodes field f as the JSON document persisted for it. A nil
// map is written as {} so readers never see null.
func (s *Store) MarshalBlob(f Field) ([]byte, error) {
	return EncodeBlob(s.Blob(f))
}

// EncodeBlob encodes a period-keyed map, writing nil maps as {}.
func EncodeBlob(blob any) ([]byte, error) {
	data, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("encode blob: %w", err)
	}
	if string(data) == "null" {
		return []byte("{}"), nil
	}
	return data, nil
}

// UnmarshalBlob decodes a persisted JSON document into field f. Empty input
// leaves the field empty.
func (s *Store) UnmarshalBlob(f Field, data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	var err error
	switch f {
	case FieldGoals:
		s.Goals = PeriodMap[Values]{}
		err = json.Unmarshal(data, &s.Goals)
	case FieldWeights:
		s.Weights = PeriodMap[Weights]{}
		err = json.Unmarshal(data, &s.Weights)
	case FieldStoreResults:
		s.StoreResults = PeriodMap[Values]{}
		err = json.Unmarshal(data, &s.StoreResults)
	case FieldCollaboratorResults:
		s.CollaboratorResults = PeriodMap[CollaboratorValues]{}
		err = json.Unmarshal(data, &s.CollaboratorResults)
	case FieldResultsLocks:
		s.ResultsLocks = PeriodMap[bool]{}
		err = json.Unmarshal(data, &s.ResultsLocks)
	default:
		return fmt.Errorf("unknown field %q", f)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", f, err)
	}
	return nil
}

// Fields lists every blob field of a store record.
var Fields = []Field{FieldGoals, FieldWeights, FieldStoreResults, FieldCollaboratorResults, FieldResultsLocks}
