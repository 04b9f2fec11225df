package docstore

import "context"

// IDGenerator tracks the last-issued identifier per collection name. Its
// single operation, Update, has a deliberate asymmetry: on first use for a
// name the default is stored as-is and the generator function is NOT applied;
// on every later use the function advances the prior value. Collections rely
// on this to seed ID sequences.
//
// Monotonicity is only as good as the caller's generator function; nothing
// here validates ordering.
type IDGenerator[K any] struct {
	kv    KeyValueStore
	codec Codec[K]
}

// NewIDGenerator builds a generator over the shared generator map.
func NewIDGenerator[K any](kv KeyValueStore, codec Codec[K]) *IDGenerator[K] {
	return &IDGenerator[K]{kv: kv, codec: codec}
}

// GeneratedID reports the outcome of IDGenerator.Update: the previous
// last-issued value (nil on first use) and the newly issued one.
type GeneratedID[K any] struct {
	Previous *K
	Value    K
}

// Update atomically advances the last-issued identifier for name. If no prior
// value exists, def itself is stored and issued. Otherwise next(prior) is
// stored and issued.
func (g *IDGenerator[K]) Update(ctx context.Context, name string, def K, next func(K) K) (GeneratedID[K], error) {
	encodedDef, err := g.codec.EncodeToString(def)
	if err != nil {
		return GeneratedID[K]{}, err
	}

	// Encode/decode failures inside the updater are captured and surfaced
	// after the store operation completes.
	var innerErr error
	res, err := g.kv.Update(ctx, name, encodedDef, func(prior string) string {
		prev, err := g.codec.DecodeString(prior)
		if err != nil {
			innerErr = err
			return prior
		}
		encoded, err := g.codec.EncodeToString(next(prev))
		if err != nil {
			innerErr = err
			return prior
		}
		return encoded
	})
	if err != nil {
		return GeneratedID[K]{}, err
	}
	if innerErr != nil {
		return GeneratedID[K]{}, innerErr
	}

	value, err := g.codec.DecodeString(res.Value)
	if err != nil {
		return GeneratedID[K]{}, err
	}

	out := GeneratedID[K]{Value: value}
	if res.Previous != nil {
		prev, err := g.codec.DecodeString(*res.Previous)
		if err != nil {
			return GeneratedID[K]{}, err
		}
		out.Previous = &prev
	}
	return out, nil
}
