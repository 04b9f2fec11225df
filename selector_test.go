package docstore

import "testing"

func TestLookup(t *testing.T) {
	doc := Document{
		"name": "alice",
		"age":  30,
		"address": Document{
			"city": "Berlin",
			"geo":  Document{"lat": 52.52},
		},
		"tags":  []interface{}{"admin", "ops"},
		"empty": nil,
		"pets": []interface{}{
			Document{"name": "rex"},
		},
	}

	tests := []struct {
		name     string
		selector string
		want     interface{}
		found    bool
	}{
		{"TopLevel", "name", "alice", true},
		{"Nested", "address.city", "Berlin", true},
		{"DeeplyNested", "address.geo.lat", 52.52, true},
		{"ArrayIndex", "tags.1", "ops", true},
		{"ArrayThenKey", "pets.0.name", "rex", true},
		{"NullIsFoundButNil", "empty", nil, true},
		{"MissingKey", "missing", nil, false},
		{"MissingNestedKey", "address.zip", nil, false},
		{"PathThroughScalar", "name.deeper", nil, false},
		{"PathThroughNull", "empty.deeper", nil, false},
		{"ArrayIndexOutOfRange", "tags.5", nil, false},
		{"ArrayIndexNegative", "tags.-1", nil, false},
		{"ArrayIndexNotNumeric", "tags.first", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Lookup(doc, tt.selector)
			if found != tt.found {
				t.Fatalf("Lookup(%q): found=%v, want %v", tt.selector, found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.selector, got, tt.want)
			}
		})
	}
}
