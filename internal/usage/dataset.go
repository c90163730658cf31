package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ExportVersion is the current export envelope version.
const ExportVersion = 1

// ErrInvalidDataset marks import payloads that are not usable usage
// aggregates. Batch importers match it with errors.Is and keep going.
var ErrInvalidDataset = errors.New("invalid usage dataset")

// Envelope wraps an aggregate for export.
type Envelope struct {
	Version    int        `json:"version"`
	ExportedAt string     `json:"exported_at"`
	Data       *Aggregate `json:"data"`
}

// EncodeExport wraps agg in a versioned envelope and marshals it.
func EncodeExport(agg *Aggregate) ([]byte, error) {
	env := Envelope{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Data:       agg,
	}
	return json.MarshalIndent(env, "", "  ")
}

// wireCheck mirrors just enough of the aggregate shape to validate an
// import without trusting the rest of the payload.
type wireCheck struct {
	Range *json.RawMessage `json:"range"`
	Daily *struct {
		Labels *[]string `json:"labels"`
		Total  *[]int64  `json:"total"`
	} `json:"daily"`
}

// DecodeImport parses an exported document. Both the bare aggregate and
// the versioned envelope are accepted. Payloads missing the range block
// or the daily labels/total series fail with ErrInvalidDataset.
func DecodeImport(data []byte) (*Aggregate, error) {
	var env struct {
		Version int             `json:"version"`
		Data    json.RawMessage `json:"data"`
	}
	body := data
	if err := json.Unmarshal(data, &env); err == nil && len(env.Data) > 0 {
		body = env.Data
	}

	var check wireCheck
	if err := json.Unmarshal(body, &check); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if check.Range == nil || check.Daily == nil || check.Daily.Labels == nil || check.Daily.Total == nil {
		return nil, fmt.Errorf("%w: missing range or daily series", ErrInvalidDataset)
	}

	var agg Aggregate
	if err := json.Unmarshal(body, &agg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	return &agg, nil
}
