package docstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Document is a decoded JSON object. The identifier lives in one property
// (DefaultIDProperty unless overridden per collection).
type Document = map[string]interface{}

// Codec converts identifier values to and from their canonical string form.
// The canonical string is what keys the backing map and what feeds the
// identity hash, so it must be stable across processes.
type Codec[K any] interface {
	EncodeToString(K) (string, error)
	DecodeString(string) (K, error)
}

// JSONCodec is the default Codec: canonical form is the JSON encoding of the
// identifier. encoding/json sorts object keys, so the form is stable for any
// serializable type.
type JSONCodec[K any] struct{}

func (JSONCodec[K]) EncodeToString(k K) (string, error) {
	data, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("failed to encode identifier: %w", err)
	}
	return string(data), nil
}

func (JSONCodec[K]) DecodeString(s string) (K, error) {
	var k K
	if err := json.Unmarshal([]byte(s), &k); err != nil {
		return k, fmt.Errorf("failed to decode identifier: %w", err)
	}
	return k, nil
}

// IdentityHash reduces a canonically encoded identifier to the 64-bit token
// stored in secondary index buckets. It is one-way: buckets can answer
// membership and cardinality but never recover the identifier.
func IdentityHash(encoded string) uint64 {
	return xxhash.Sum64String(encoded)
}

// encodeValue renders any JSON-compatible value to its canonical string form,
// used both as the secondary index bucket key and for equality comparison in
// scans.
func encodeValue(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(data), nil
}

// encodeDocument renders a document to the JSON text persisted in the
// collection's backing map.
func encodeDocument(doc Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(data), nil
}

// decodeJSONValue parses canonical JSON text into its decoded-document
// representation (numbers as json.Number).
func decodeJSONValue(text string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return v, nil
}

// decodeDocument parses persisted JSON text back into a document. Numbers are
// kept as json.Number so identifiers and indexed values round-trip without
// float64 precision loss.
func decodeDocument(text string) (Document, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return doc, nil
}
