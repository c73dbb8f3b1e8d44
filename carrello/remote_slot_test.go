package carrello

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (f fakeEntry) Value() []byte { return f.value }

type fakeKV struct {
	jetstream.KeyValue
	data   map[string][]byte
	putErr error
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	if f.putErr != nil {
		return 0, f.putErr
	}
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func TestNATSSlot(t *testing.T) {
	// Arrange
	kv := &fakeKV{data: map[string][]byte{}}
	slot := newNATSSlot(kv, "")

	// Act & Assert
	_, err := slot.Get(context.Background())
	assert.ErrorIs(t, err, ErrSlotEmpty)

	require.NoError(t, slot.Put(context.Background(), []byte(`[]`)))
	assert.Contains(t, kv.data, DefaultKey)

	data, err := slot.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}

func TestNATSSlotPutError(t *testing.T) {
	slot := newNATSSlot(&fakeKV{data: map[string][]byte{}, putErr: jetstream.ErrBucketNotFound}, "cart-1")

	err := slot.Put(context.Background(), []byte(`[]`))

	assert.ErrorIs(t, err, jetstream.ErrBucketNotFound)
}

type fakeRow struct {
	value string
	err   error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	*dest[0].(*string) = f.value
	return nil
}

type fakePgx struct {
	rows  map[string]string
	execs []string
}

func (f *fakePgx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	if strings.Contains(sql, "INSERT INTO kv_slots") {
		f.rows[args[0].(string)] = args[1].(string)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakePgx) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	v, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: v}
}

func (f *fakePgx) Ping(context.Context) error { return nil }

func TestPostgresSlot(t *testing.T) {
	// Arrange
	db := &fakePgx{rows: map[string]string{}}
	slot, err := NewPostgresSlot(context.Background(), db, "")
	require.NoError(t, err)
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS kv_slots")

	// Act & Assert
	_, err = slot.Get(context.Background())
	assert.ErrorIs(t, err, ErrSlotEmpty)

	require.NoError(t, slot.Put(context.Background(), []byte(`[{"id":1}]`)))
	assert.Contains(t, db.execs[1], "ON CONFLICT (key) DO UPDATE")

	data, err := slot.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(data))
	assert.NoError(t, slot.Ping(context.Background()))
}

func TestPostgresSlotQueryError(t *testing.T) {
	db := &fakePgx{rows: map[string]string{}}
	slot := &PostgresSlot{db: errPgx{db}, key: DefaultKey}

	_, err := slot.Get(context.Background())

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSlotEmpty))
}

type errPgx struct{ *fakePgx }

func (errPgx) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{err: errors.New("connection reset")}
}
