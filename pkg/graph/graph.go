package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
)

// =============================================================================
// Document Serialization API
// =============================================================================

// MarshalDocument converts a document to indented JSON bytes.
func MarshalDocument(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDocument(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDocumentFile writes a document to a JSON file.
// The file is created with 0644 permissions.
func WriteDocumentFile(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteDocument(doc, f)
}

// WriteDocument writes a document as indented JSON to w.
func WriteDocument(doc Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadDocumentFile reads and validates a JSON document file.
func ReadDocumentFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDocument(f)
}

// ReadDocument decodes a JSON document from r. The input is validated
// against the graph schema first, and duplicate node ids are rejected;
// both failures are VALIDATION_ERRORs.
func ReadDocument(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read: %w", err)
	}
	return UnmarshalDocument(data)
}

// UnmarshalDocument is [ReadDocument] for in-memory bytes.
func UnmarshalDocument(data []byte) (Document, error) {
	if err := ValidateJSON(data); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, flerrors.Wrap(flerrors.ErrCodeValidation, err, "decode graph document")
	}
	if err := checkDuplicates(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// LoadFile reads a document file and converts it into an in-memory graph.
func LoadFile(path string) (*Memory, error) {
	doc, err := ReadDocumentFile(path)
	if err != nil {
		return nil, err
	}
	return doc.ToMemory()
}

// =============================================================================
// Internal Implementation
// =============================================================================

func checkDuplicates(doc Document) error {
	seen := make(map[string]struct{}, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if _, dup := seen[n.ID]; dup {
			return flerrors.Validation("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	edges := make(map[string]struct{}, len(doc.Edges))
	for _, e := range doc.Edges {
		if e.ID == "" {
			continue
		}
		if _, dup := edges[e.ID]; dup {
			return flerrors.Validation("duplicate edge id %q", e.ID)
		}
		edges[e.ID] = struct{}{}
	}
	return nil
}
