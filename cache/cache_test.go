package cache

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/siegeai/jsonkit/infer"
	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInfer(t *testing.T, doc string) *jsonschema.Schema {
	t.Helper()
	s, err := infer.InferBytes([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestRecordRoundTrip(t *testing.T) {
	docs := []string{
		`{"a": 1, "b": [], "c": {}, "d": [{"e": "x"}, {"e": null, "f": 2.5}]}`,
		`[[1], []]`,
		`"x"`,
	}
	for _, doc := range docs {
		s := mustInfer(t, doc)
		b, err := marshalSchema(s)
		require.NoError(t, err)
		res, err := unmarshalSchema(b)
		require.NoError(t, err)
		assert.True(t, jsonschema.Equal(s, res), doc)
	}
}

func TestNewCreatesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS file_schemas")).WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = New(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

var columns = []string{"size", "mod_time", "documents", "body"}

func TestGetMissAndStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE")).WillReturnResult(sqlmock.NewResult(0, 0))
	c, err := New(context.Background(), db)
	require.NoError(t, err)

	mt := time.Unix(1700000000, 0)
	k := Key{Path: "/a.json", Size: 10, ModTime: mt, Options: "unpack"}

	mock.ExpectQuery(regexp.QuoteMeta(selectSchema)).
		WithArgs("/a.json", "unpack").
		WillReturnRows(sqlmock.NewRows(columns))
	_, ok, err := c.Get(context.Background(), k)
	require.NoError(t, err)
	assert.False(t, ok)

	body, err := marshalSchema(mustInfer(t, `{"a": 1}`))
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(selectSchema)).
		WithArgs("/a.json", "unpack").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(11), mt.UnixNano(), int64(2), body))
	_, ok, err = c.Get(context.Background(), k)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta(selectSchema)).
		WithArgs("/a.json", "unpack").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(10), mt.UnixNano(), int64(2), body))
	e, ok, err := c.Get(context.Background(), k)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, e.Schema.Required)
	assert.Equal(t, 2, e.Documents)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE")).WillReturnResult(sqlmock.NewResult(0, 0))
	c, err := New(context.Background(), db)
	require.NoError(t, err)

	boom := errors.New("disk on fire")
	mock.ExpectQuery(regexp.QuoteMeta(selectSchema)).WillReturnError(boom)
	_, _, err = c.Get(context.Background(), Key{Path: "/a.json"})
	assert.ErrorIs(t, err, boom)
}

func TestPutUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE")).WillReturnResult(sqlmock.NewResult(0, 0))
	c, err := New(context.Background(), db)
	require.NoError(t, err)

	s := mustInfer(t, `{"a": 1}`)
	mt := time.Unix(1700000000, 5)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO file_schemas")).
		WithArgs("/a.json", "", int64(10), mt.UnixNano(), int64(3), jsonschema.Fingerprint(s), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, c.Put(context.Background(), Key{Path: "/a.json", Size: 10, ModTime: mt}, Entry{Schema: s, Documents: 3}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlite(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	k := Key{Path: "/a.json", Size: 3, ModTime: time.Unix(1700000000, 0)}
	_, ok, err := c.Get(ctx, k)
	require.NoError(t, err)
	assert.False(t, ok)

	first := mustInfer(t, `{"a": 1}`)
	require.NoError(t, c.Put(ctx, k, Entry{Schema: first, Documents: 1}))

	got, ok, err := c.Get(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, jsonschema.Equal(first, got.Schema))
	assert.Equal(t, 1, got.Documents)

	second := mustInfer(t, `{"b": "x"}`)
	k2 := Key{Path: k.Path, Size: 4, ModTime: k.ModTime.Add(time.Second)}
	require.NoError(t, c.Put(ctx, k2, Entry{Schema: second, Documents: 1}))

	_, ok, err = c.Get(ctx, k)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err = c.Get(ctx, k2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, jsonschema.Equal(second, got.Schema))
}

func TestSqliteKeepsEntriesPerOptions(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	plain := Key{Path: "/a.json", Size: 3, ModTime: time.Unix(1700000000, 0)}
	unpacked := plain
	unpacked.Options = "unpack_arrays=true"

	require.NoError(t, c.Put(ctx, plain, Entry{Schema: mustInfer(t, `[{"a": 1}]`), Documents: 1}))
	_, ok, err := c.Get(ctx, unpacked)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, unpacked, Entry{Schema: mustInfer(t, `{"a": 1}`), Documents: 1}))
	got, ok, err := c.Get(ctx, plain)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Schema.Is(jsonschema.TypeArray))

	got, ok, err = c.Get(ctx, unpacked)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Schema.Is(jsonschema.TypeObject))
}
