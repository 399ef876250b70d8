package catalog

import (
	"reflect"
	"testing"
	"time"
)

func visibleCatalog(id string, created time.Time) Catalog {
	return Catalog{ID: id, CreatedAt: created}
}

func archivedCatalog(id string, archived time.Time) Catalog {
	return Catalog{ID: id, IsArchived: true, ArchivedAt: &archived}
}

func TestPickForArchive(t *testing.T) {
	base := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)

	t.Run("oldest catalogs go first", func(t *testing.T) {
		visible := []Catalog{
			visibleCatalog("c", base.Add(2*time.Hour)),
			visibleCatalog("a", base),
			visibleCatalog("b", base.Add(time.Hour)),
		}
		got := pickForArchive(visible, 1)
		want := []string{"a", "b"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("id breaks creation time ties", func(t *testing.T) {
		visible := []Catalog{
			visibleCatalog("b", base),
			visibleCatalog("a", base),
		}
		got := pickForArchive(visible, 1)
		want := []string{"a"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("within limit selects nothing", func(t *testing.T) {
		visible := []Catalog{visibleCatalog("a", base)}
		if got := pickForArchive(visible, 3); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})

	t.Run("zero means unlimited", func(t *testing.T) {
		visible := []Catalog{
			visibleCatalog("a", base),
			visibleCatalog("b", base.Add(time.Hour)),
		}
		if got := pickForArchive(visible, 0); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})
}

func TestPickForRestore(t *testing.T) {
	base := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)

	t.Run("most recently archived come back first", func(t *testing.T) {
		archived := []Catalog{
			archivedCatalog("a", base),
			archivedCatalog("c", base.Add(2*time.Hour)),
			archivedCatalog("b", base.Add(time.Hour)),
		}
		got := pickForRestore(archived, 0, 2)
		want := []string{"c", "b"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("existing visible catalogs consume the quota", func(t *testing.T) {
		archived := []Catalog{
			archivedCatalog("a", base),
			archivedCatalog("b", base.Add(time.Hour)),
		}
		got := pickForRestore(archived, 2, 3)
		want := []string{"b"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("no quota left selects nothing", func(t *testing.T) {
		archived := []Catalog{archivedCatalog("a", base)}
		if got := pickForRestore(archived, 3, 3); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})

	t.Run("zero means unlimited and restores everything", func(t *testing.T) {
		archived := []Catalog{
			archivedCatalog("a", base),
			archivedCatalog("b", base.Add(time.Hour)),
		}
		got := pickForRestore(archived, 10, 0)
		want := []string{"b", "a"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}
