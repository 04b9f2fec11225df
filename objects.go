package docstore

import (
	"context"
	"encoding/json"
)

// ObjectCollection is the typed facade over a Collection: domain objects are
// encoded to JSON documents on the way in and decoded on the way out; every
// operation otherwise delegates 1:1. Types whose JSON encoding is not an
// object (arrays, primitives, null) are rejected with an error naming the
// actual kind.
type ObjectCollection[T any, K comparable] struct {
	coll *Collection[K]
}

// ObjectsOf builds the typed facade over coll.
func ObjectsOf[T any, K comparable](coll *Collection[K]) *ObjectCollection[T, K] {
	return &ObjectCollection[T, K]{coll: coll}
}

// Collection returns the underlying document collection.
func (o *ObjectCollection[T, K]) Collection() *Collection[K] {
	return o.coll
}

// Insert stores obj; its identifier must be present in the encoded form's id
// property. Returns the stored object (identifier included).
func (o *ObjectCollection[T, K]) Insert(ctx context.Context, obj *T) (*T, error) {
	doc, err := o.encode(obj)
	if err != nil {
		return nil, err
	}
	stored, err := o.coll.Insert(ctx, doc)
	if err != nil {
		return nil, err
	}
	return o.decode(stored)
}

// InsertWithGenerator stores obj, issuing an identifier through the
// collection's generator when the encoded form carries none.
func (o *ObjectCollection[T, K]) InsertWithGenerator(ctx context.Context, obj *T, seed K, next func(K) K) (*T, error) {
	doc, err := o.encode(obj)
	if err != nil {
		return nil, err
	}
	stored, err := o.coll.InsertWithGenerator(ctx, doc, seed, next)
	if err != nil {
		return nil, err
	}
	return o.decode(stored)
}

// FindByID returns the object stored under id, or ErrNotFound.
func (o *ObjectCollection[T, K]) FindByID(ctx context.Context, id K) (*T, error) {
	doc, err := o.coll.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.decode(doc)
}

// Find returns every object whose value at selector equals value. Full scan;
// see Collection.Find.
func (o *ObjectCollection[T, K]) Find(ctx context.Context, selector string, value interface{}) ([]*T, error) {
	docs, err := o.coll.Find(ctx, selector, value)
	if err != nil {
		return nil, err
	}
	results := make([]*T, 0, len(docs))
	for _, doc := range docs {
		obj, err := o.decode(doc)
		if err != nil {
			return nil, err
		}
		results = append(results, obj)
	}
	return results, nil
}

// RemoveByID deletes and returns the object stored under id, or ErrNotFound.
func (o *ObjectCollection[T, K]) RemoveByID(ctx context.Context, id K) (*T, error) {
	doc, err := o.coll.RemoveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.decode(doc)
}

// RemoveWhere deletes every object whose value at selector equals value.
func (o *ObjectCollection[T, K]) RemoveWhere(ctx context.Context, selector string, value interface{}) (bool, error) {
	return o.coll.RemoveWhere(ctx, selector, value)
}

// UpdateByID applies the typed updater to the object stored under id and
// re-inserts the result. A nil updater result is a no-op returning
// ErrNotFound, matching Collection.UpdateByID.
func (o *ObjectCollection[T, K]) UpdateByID(ctx context.Context, id K, updater func(*T) (*T, error)) (*T, error) {
	doc, err := o.coll.UpdateByID(ctx, id, func(current Document) (Document, error) {
		obj, err := o.decode(current)
		if err != nil {
			return nil, err
		}
		updated, err := updater(obj)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, nil
		}
		return o.encode(updated)
	})
	if err != nil {
		return nil, err
	}
	return o.decode(doc)
}

// encode renders obj as a JSON document, rejecting non-object encodings.
func (o *ObjectCollection[T, K]) encode(obj *T) (Document, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	value, err := decodeJSONValue(string(data))
	if err != nil {
		return nil, err
	}
	doc, ok := value.(map[string]interface{})
	if !ok {
		return nil, WithContext(ErrNotJSONObject, map[string]interface{}{
			"kind": jsonKind(value),
		})
	}
	return doc, nil
}

// decode unmarshals a document back into the domain type.
func (o *ObjectCollection[T, K]) decode(doc Document) (*T, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var obj T
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// jsonKind names the JSON kind of a decoded value, for error messages.
func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "unknown"
	}
}
