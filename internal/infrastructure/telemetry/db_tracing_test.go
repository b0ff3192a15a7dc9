package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testRow struct {
	Rank int
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func setupSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBName)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db, _ := newMockGorm(t)

	p := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, p.Register(db))

	assert.Nil(t, db.Callback().Query().Get("sellerboard_trace:after_query"))
}

func TestDBTracingPlugin_AnnotatesQuerySpan(t *testing.T) {
	sr := setupSpanRecorder(t)
	db, mock := newMockGorm(t)

	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, p.Register(db))

	mock.ExpectQuery(`SELECT \* FROM "leaderboard" ORDER BY rank ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"rank"}).AddRow(1).AddRow(2))

	var rows []testRow
	require.NoError(t, db.WithContext(context.Background()).Table("leaderboard").Order("rank ASC").Find(&rows).Error)
	require.NoError(t, mock.ExpectationsWereMet())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, int64(2), attrs["db.rows_affected"].AsInt64())
	assert.Equal(t, "leaderboard", attrs["db.sql.table"].AsString())
	_, slow := attrs["db.slow_query"]
	assert.False(t, slow)
}

func TestDBTracingPlugin_MarksErrors(t *testing.T) {
	sr := setupSpanRecorder(t)
	db, mock := newMockGorm(t)

	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop()).Register(db))

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("relation \"leaderboard\" does not exist"))

	var rows []testRow
	require.Error(t, db.Table("leaderboard").Find(&rows).Error)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestDBTracingPlugin_NotFoundIsNotAnError(t *testing.T) {
	sr := setupSpanRecorder(t)
	db, mock := newMockGorm(t)

	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop()).Register(db))

	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows([]string{"rank"}))

	var row testRow
	err := db.Table("leaderboard").Where("rank = ?", 99).First(&row).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestDBTracingPlugin_SlowQuery(t *testing.T) {
	sr := setupSpanRecorder(t)
	db, mock := newMockGorm(t)

	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 10 * time.Millisecond,
	}, zap.NewNop()).Register(db))

	mock.ExpectQuery(`SELECT`).
		WillDelayFor(30 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"rank"}).AddRow(1))

	var rows []testRow
	require.NoError(t, db.Table("leaderboard").Find(&rows).Error)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.True(t, spanAttrs(spans[0])["db.slow_query"].AsBool())

	var found bool
	for _, ev := range spans[0].Events() {
		if ev.Name == "slow_query_warning" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDBTracingPlugin_DoubleRegistration(t *testing.T) {
	db, _ := newMockGorm(t)

	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, p.Register(db))
	assert.Error(t, p.Register(db), "gorm rejects a second plugin with the same name")
}
