package docstore

import (
	"context"
	"errors"
	"testing"
)

type user struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email,omitempty"`
}

func newUserObjects(t *testing.T) *ObjectCollection[user, string] {
	t.Helper()
	db := NewDatabase(NewMemoryRegistry())
	coll, err := db.Collection(context.Background(), "users")
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}
	return ObjectsOf[user](coll)
}

func TestObjectCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	users := newUserObjects(t)

	t.Run("InsertAndFindByID", func(t *testing.T) {
		stored, err := users.Insert(ctx, &user{ID: "alice", Name: "Alice", Age: 30})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if stored.ID != "alice" || stored.Age != 30 {
			t.Errorf("stored object mismatch: %+v", stored)
		}

		got, err := users.FindByID(ctx, "alice")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.Name != "Alice" {
			t.Errorf("name mismatch: %+v", got)
		}
	})

	t.Run("GeneratedIdentifier", func(t *testing.T) {
		stored, err := users.InsertWithGenerator(ctx, &user{Name: "Bob"}, NewID(), func(string) string {
			return NewID()
		})
		if err != nil {
			t.Fatalf("InsertWithGenerator failed: %v", err)
		}
		if !IsValidID(stored.ID) {
			t.Errorf("expected a generated UUID, got %q", stored.ID)
		}

		if _, err := users.FindByID(ctx, stored.ID); err != nil {
			t.Errorf("FindByID on generated id failed: %v", err)
		}
	})

	t.Run("Find", func(t *testing.T) {
		if _, err := users.Insert(ctx, &user{ID: "carol", Name: "Carol", Age: 30}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		matches, err := users.Find(ctx, "age", 30)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(matches) != 2 {
			t.Errorf("expected alice and carol, got %d objects", len(matches))
		}
	})

	t.Run("UpdateByID", func(t *testing.T) {
		updated, err := users.UpdateByID(ctx, "alice", func(u *user) (*user, error) {
			u.Age = 31
			return u, nil
		})
		if err != nil {
			t.Fatalf("UpdateByID failed: %v", err)
		}
		if updated.Age != 31 {
			t.Errorf("expected updated age, got %+v", updated)
		}

		_, err = users.UpdateByID(ctx, "alice", func(*user) (*user, error) {
			return nil, nil
		})
		if !IsNotFound(err) {
			t.Errorf("expected ErrNotFound for nil updater result, got %v", err)
		}
	})

	t.Run("RemoveByID", func(t *testing.T) {
		removed, err := users.RemoveByID(ctx, "alice")
		if err != nil {
			t.Fatalf("RemoveByID failed: %v", err)
		}
		if removed.Name != "Alice" {
			t.Errorf("removed object mismatch: %+v", removed)
		}
		if _, err := users.FindByID(ctx, "alice"); !IsNotFound(err) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RemoveWhere", func(t *testing.T) {
		removed, err := users.RemoveWhere(ctx, "name", "Carol")
		if err != nil {
			t.Fatalf("RemoveWhere failed: %v", err)
		}
		if !removed {
			t.Error("expected removal to be reported")
		}
	})
}

func TestObjectCollection_RejectsNonObjectTypes(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(NewMemoryRegistry())
	coll, err := db.Collection(ctx, "scalars")
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}

	t.Run("String", func(t *testing.T) {
		scalars := ObjectsOf[string](coll)
		s := "just a string"
		_, err := scalars.Insert(ctx, &s)
		if !errors.Is(err, ErrNotJSONObject) {
			t.Fatalf("expected ErrNotJSONObject, got %v", err)
		}
		var ec *ErrorWithContext
		if !errors.As(err, &ec) || ec.Context["kind"] != "string" {
			t.Errorf("expected kind=string in context, got %v", err)
		}
	})

	t.Run("Slice", func(t *testing.T) {
		slices := ObjectsOf[[]int](coll)
		v := []int{1, 2, 3}
		_, err := slices.Insert(ctx, &v)
		if !errors.Is(err, ErrNotJSONObject) {
			t.Fatalf("expected ErrNotJSONObject, got %v", err)
		}
		var ec *ErrorWithContext
		if !errors.As(err, &ec) || ec.Context["kind"] != "array" {
			t.Errorf("expected kind=array in context, got %v", err)
		}
	})

	t.Run("Number", func(t *testing.T) {
		numbers := ObjectsOf[int](coll)
		n := 7
		_, err := numbers.Insert(ctx, &n)
		if !errors.Is(err, ErrNotJSONObject) {
			t.Fatalf("expected ErrNotJSONObject, got %v", err)
		}
		var ec *ErrorWithContext
		if !errors.As(err, &ec) || ec.Context["kind"] != "number" {
			t.Errorf("expected kind=number in context, got %v", err)
		}
	})
}
