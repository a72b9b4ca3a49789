package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestInstrumentGorm_RecordsQueries(t *testing.T) {
	db := openSQLite(t)
	mp, reader := manualMeter(t)
	require.NoError(t, InstrumentGorm(db, GormConfig{}, mp.Meter("db"), nil))

	require.NoError(t, db.Create(&widget{Name: "a"}).Error)
	var got widget
	require.NoError(t, db.First(&got).Error)
	assert.Error(t, db.Exec("INSERT INTO missing_table VALUES (1)").Error)

	data := collect(t, reader)
	hist := data["db_client_query_duration_seconds"].(metricdata.Histogram[float64])
	ops := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		ops[op.AsString()] += dp.Count
	}
	assert.Equal(t, uint64(1), ops["SELECT"])
	assert.GreaterOrEqual(t, ops["INSERT"], uint64(2))

	errs := data["db_client_query_errors_total"].(metricdata.Sum[int64])
	require.Len(t, errs.DataPoints, 1)
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)
}

func TestInstrumentGorm_LogsSlowQueries(t *testing.T) {
	db := openSQLite(t)
	core, logs := observer.New(zapcore.WarnLevel)
	require.NoError(t, InstrumentGorm(db, GormConfig{SlowQuery: time.Nanosecond}, nil, zap.New(core)))

	var rows []widget
	require.NoError(t, db.Find(&rows).Error)

	slow := logs.FilterMessage("Slow query").All()
	require.NotEmpty(t, slow)
	assert.Equal(t, "SELECT", slow[0].ContextMap()["operation"])
	assert.Equal(t, "widgets", slow[0].ContextMap()["table"])
}

func TestInstrumentGorm_Tracing(t *testing.T) {
	db := openSQLite(t)
	recorder := recordSpans(t)
	require.NoError(t, InstrumentGorm(db, GormConfig{Tracing: true, DBName: "sqlite"}, nil, nil))

	require.NoError(t, db.Create(&widget{Name: "traced"}).Error)
	assert.NotEmpty(t, recorder.Ended())
}

func TestStatementOperation(t *testing.T) {
	tests := map[string]string{
		"  select * from t":           "SELECT",
		"INSERT INTO t VALUES (1)":    "INSERT",
		"update t set a = 1":          "UPDATE",
		"DELETE FROM t":               "DELETE",
		"WITH x AS (SELECT 1) SELECT": "SELECT",
		"VACUUM":                      "OTHER",
		"":                            "OTHER",
	}
	for sql, want := range tests {
		assert.Equal(t, want, StatementOperation(sql), sql)
	}
}
