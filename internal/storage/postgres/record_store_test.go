package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
)

type fixedIDGen struct{ id string }

func (g fixedIDGen) NewID() (string, error) { return g.id, nil }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var recordCols = []string{
	"id", "natural_key", "title", "display_price", "numeric_price",
	"image_url", "category", "source_page", "created_at", "updated_at",
}

func TestUpsertSendsAtomicStatement(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewRecordStoreWithPool(mock, fixedIDGen{id: "fresh-id"}, fixedClock{now: now})
	require.NoError(t, err)

	// The conflicting row keeps its original id and created_at; the store
	// reports whatever the database returns.
	firstInsert := now.Add(-24 * time.Hour)
	mock.ExpectQuery("INSERT INTO records").
		WithArgs(
			"fresh-id",
			"https://www.jumia.ma/p/telephone-1",
			"Telephone",
			"1,299 MAD",
			int64(1299),
			"https://cdn.example.com/p1.jpg",
			"Phones",
			"https://www.jumia.ma/telephones/",
			now,
		).
		WillReturnRows(pgxmock.NewRows(recordCols).AddRow(
			"original-id",
			"https://www.jumia.ma/p/telephone-1",
			"Telephone",
			"1,299 MAD",
			int64(1299),
			"https://cdn.example.com/p1.jpg",
			"Phones",
			"https://www.jumia.ma/telephones/",
			firstInsert,
			now,
		))

	rec, err := store.Upsert(context.Background(), catalog.Draft{
		NaturalKey:   "https://www.jumia.ma/p/telephone-1",
		Title:        "Telephone",
		DisplayPrice: "1,299 MAD",
		ImageURL:     "https://cdn.example.com/p1.jpg",
		Category:     "Phones",
		SourcePage:   "https://www.jumia.ma/telephones/",
	})
	require.NoError(t, err)
	require.Equal(t, "original-id", rec.ID)
	require.Equal(t, firstInsert, rec.CreatedAt)
	require.Equal(t, now, rec.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRejectsMalformedDraftBeforeStore(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, fixedIDGen{id: "x"}, fixedClock{now: time.Now()})
	require.NoError(t, err)

	_, err = store.Upsert(context.Background(), catalog.Draft{Title: "No key"})
	require.Error(t, err)
	require.True(t, catalog.IsValidationError(err))
	// No SQL expectations were registered; a query would have failed the mock.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDMapsNoRowsToNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, fixedIDGen{id: "x"}, fixedClock{now: time.Now()})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM records WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(recordCols))

	_, err = store.FindByID(context.Background(), "missing")
	require.True(t, errors.Is(err, catalog.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDistinctCategoriesExcludesSentinel(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, fixedIDGen{id: "x"}, fixedClock{now: time.Now()})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT DISTINCT category FROM records").
		WithArgs(catalog.CategoryUncategorized).
		WillReturnRows(pgxmock.NewRows([]string{"category"}).AddRow("Phones").AddRow("TVs"))

	cats, err := store.ListDistinctCategories(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Phones", "TVs"}, cats)
	require.NoError(t, mock.ExpectationsWereMet())
}
