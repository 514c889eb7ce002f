package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows ---

type mockRows struct {
	data    [][]any
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func newMockRows(data [][]any) *mockRows {
	return &mockRows{data: data, idx: -1}
}

func (r *mockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	for i, d := range dest {
		switch v := d.(type) {
		case *int64:
			*v = row[i].(int64)
		case *string:
			*v = row[i].(string)
		case *float64:
			*v = row[i].(float64)
		case *time.Time:
			*v = row[i].(time.Time)
		case *[]byte:
			*v = row[i].([]byte)
		}
	}
	return nil
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

// --- Fixtures ---

var storeNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(storeNow))
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })
}

func sampleAssessment() domain.Assessment {
	return domain.ComputeAssessment(domain.IndicatorSet{NDVI: 0.1, NDMI: 0.05, BareSoilIndex: 0.6, ErosionRisk: 0.3})
}

// --- Tests ---

func TestStore_EnsureSchema(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)

	db.On("Exec", mock.Anything, schemaDDL, mock.Anything).Return(pgconn.NewCommandTag("CREATE TABLE"), nil)

	require.NoError(t, store.EnsureSchema(context.Background()))
	db.AssertExpectations(t)
}

func TestStore_EnsureSchema_Error(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)

	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("permission denied"))

	err := store.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure schema")
}

func TestStore_SaveAssessment_Success(t *testing.T) {
	freezeClock(t)
	db := new(mockDBTX)
	store := NewStore(db)
	a := sampleAssessment()

	var captured []any
	db.On("QueryRow", mock.Anything, saveAssessmentSQL, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).([]any) }).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*string) = "b1f7c2de-0000-4000-8000-000000000001"
			return nil
		}})

	id, err := store.SaveAssessment(context.Background(),
		domain.Location{Name: "North Field", Lon: 36.8, Lat: -1.3}, "2025-03-10", a)

	require.NoError(t, err)
	assert.Equal(t, "b1f7c2de-0000-4000-8000-000000000001", id)

	require.Len(t, captured, 7)
	assert.Equal(t, "North Field", captured[0])
	assert.InDelta(t, 36.8, captured[1], 1e-9)
	assert.InDelta(t, -1.3, captured[2], 1e-9)
	assert.Len(t, captured[3], 36, "record id should be a uuid")
	assert.Equal(t, "2025-03-10", captured[4])
	assert.Equal(t, storeNow, captured[6])

	var decoded domain.Assessment
	require.NoError(t, json.Unmarshal([]byte(captured[5].(string)), &decoded))
	assert.Equal(t, a, decoded)
}

func TestStore_SaveAssessment_Error(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)

	db.On("QueryRow", mock.Anything, saveAssessmentSQL, mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection reset")})

	_, err := store.SaveAssessment(context.Background(), domain.Location{Name: "Plot 7"}, "2025-03-10", sampleAssessment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `save assessment for "Plot 7"`)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStore_ListLocations(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)
	created := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)

	rows := newMockRows([][]any{
		{int64(2), "East Ridge", 36.9, -1.2, created},
		{int64(1), "North Field", 36.8, -1.3, created},
	})
	db.On("Query", mock.Anything, listLocationsSQL, mock.Anything).Return(rows, nil)

	got, err := store.ListLocations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Location{
		{ID: 2, Name: "East Ridge", Lon: 36.9, Lat: -1.2, CreatedAt: created},
		{ID: 1, Name: "North Field", Lon: 36.8, Lat: -1.3, CreatedAt: created},
	}, got)
	assert.True(t, rows.closed)
}

func TestStore_ListLocations_EmptyIsNotNil(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)
	db.On("Query", mock.Anything, listLocationsSQL, mock.Anything).Return(newMockRows(nil), nil)

	got, err := store.ListLocations(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_ListLocations_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("Query", mock.Anything, listLocationsSQL, mock.Anything).Return(nil, errors.New("timeout"))

		_, err := NewStore(db).ListLocations(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list locations")
	})

	t.Run("iteration", func(t *testing.T) {
		db := new(mockDBTX)
		rows := newMockRows(nil)
		rows.errVal = errors.New("conn closed")
		db.On("Query", mock.Anything, listLocationsSQL, mock.Anything).Return(rows, nil)

		_, err := NewStore(db).ListLocations(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "iterate locations")
	})
}

func existsRow(exists bool) *mockRow {
	return &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*bool) = exists
		return nil
	}}
}

func TestStore_LocationHistory(t *testing.T) {
	db := new(mockDBTX)
	store := NewStore(db)
	a := sampleAssessment()
	payload, err := json.Marshal(a)
	require.NoError(t, err)

	newer := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	older := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	db.On("QueryRow", mock.Anything, locationExistsSQL, []any{int64(4)}).Return(existsRow(true))
	db.On("Query", mock.Anything, locationHistorySQL, []any{int64(4), 2}).Return(newMockRows([][]any{
		{"rec-2", int64(4), time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), payload, newer},
		{"rec-1", int64(4), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), payload, older},
	}), nil)

	got, err := store.LocationHistory(context.Background(), 4, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.AnalysisRecord{ID: "rec-2", LocationID: 4, Date: "2025-03-09", Result: a, CreatedAt: newer}, got[0])
	assert.Equal(t, "2025-02-01", got[1].Date)
	db.AssertExpectations(t)
}

func TestStore_LocationHistory_UnknownLocation(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, locationExistsSQL, []any{int64(99)}).Return(existsRow(false))

	_, err := NewStore(db).LocationHistory(context.Background(), 99, 10)
	require.ErrorIs(t, err, domain.ErrLocationNotFound)
	db.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_LocationHistory_CorruptPayload(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, locationExistsSQL, mock.Anything).Return(existsRow(true))
	db.On("Query", mock.Anything, locationHistorySQL, mock.Anything).Return(newMockRows([][]any{
		{"rec-1", int64(1), storeNow, []byte("{not json"), storeNow},
	}), nil)

	_, err := NewStore(db).LocationHistory(context.Background(), 1, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode analysis record rec-1")
}

type pingingDB struct {
	mockDBTX
	err error
}

func (p *pingingDB) Ping(context.Context) error { return p.err }

func TestStore_Ping(t *testing.T) {
	t.Run("uses pool ping", func(t *testing.T) {
		db := &pingingDB{err: errors.New("refused")}
		assert.EqualError(t, NewStore(db).Ping(context.Background()), "refused")
	})

	t.Run("falls back to select", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("QueryRow", mock.Anything, "SELECT 1", mock.Anything).Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*int) = 1
			return nil
		}})
		require.NoError(t, NewStore(db).Ping(context.Background()))
	})
}
