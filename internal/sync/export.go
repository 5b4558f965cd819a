// Package sync periodically exports every variable as JSONL to external
// destinations (S3-compatible buckets, git repositories).
package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/varhub/internal/model"
)

// FormatVersion is written into every export header.
const FormatVersion = "1"

// Lister is the part of store.Store an export needs.
type Lister interface {
	ListVariables(ctx context.Context) ([]*model.Variable, error)
}

// Header is the first JSONL record written by ExportJSONL.
type Header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	VariableCount int       `json:"variable_count"`
}

// Record wraps a single JSONL line with a type discriminator.
type Record struct {
	Type string          `json:"type"`
	Data *model.Variable `json:"data"`
}

// Snapshot is one rendered export, ready for a Destination.
type Snapshot struct {
	Header Header
	// Data is the JSONL document, header line first.
	Data []byte
	// Checksum is the hex SHA-256 of the variable records. The header is
	// excluded because its timestamp changes on every export.
	Checksum string
}

// ShortChecksum returns the first 12 hex digits of the checksum.
func (s *Snapshot) ShortChecksum() string {
	if len(s.Checksum) < 12 {
		return s.Checksum
	}
	return s.Checksum[:12]
}

// TakeSnapshot exports every variable in src into memory.
func TakeSnapshot(ctx context.Context, src Lister, now time.Time) (*Snapshot, error) {
	var buf bytes.Buffer
	h, err := exportJSONL(ctx, src, &buf, now)
	if err != nil {
		return nil, err
	}
	data := buf.Bytes()
	sum := sha256.Sum256(data[bytes.IndexByte(data, '\n')+1:])
	return &Snapshot{Header: h, Data: data, Checksum: hex.EncodeToString(sum[:])}, nil
}

// ExportJSONL writes all variables from s as JSONL to w: one header line,
// then one "variable" record per variable sorted by identifier.
func ExportJSONL(ctx context.Context, s Lister, w io.Writer, now time.Time) error {
	_, err := exportJSONL(ctx, s, w, now)
	return err
}

func exportJSONL(ctx context.Context, s Lister, w io.Writer, now time.Time) (Header, error) {
	vars, err := s.ListVariables(ctx)
	if err != nil {
		return Header{}, fmt.Errorf("list variables: %w", err)
	}

	sort.Slice(vars, func(i, j int) bool {
		return vars[i].Identifier < vars[j].Identifier
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	h := Header{
		Version:       FormatVersion,
		Type:          "header",
		Timestamp:     now.UTC(),
		VariableCount: len(vars),
	}
	if err := enc.Encode(h); err != nil {
		return Header{}, fmt.Errorf("encode header: %w", err)
	}

	for _, v := range vars {
		if err := enc.Encode(Record{Type: "variable", Data: v}); err != nil {
			return Header{}, fmt.Errorf("encode variable %s: %w", v.ID, err)
		}
	}

	return h, nil
}
