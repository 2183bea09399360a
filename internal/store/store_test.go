package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestProduct(url string, price float64) *models.Product {
	p := models.NewProduct("무선 이어폰", url, "coupang")
	original := price * 2
	p.UpdatePrice(price, &original)
	p.AddBenefit("rocket_delivery")
	p.RocketDelivery = true
	return p
}

func TestGormStore_SaveRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := createTestProduct("https://www.coupang.com/vp/products/1", 39000)
	id, err := s.SaveRecord(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, p.ID)

	got, err := s.Product(ctx, p.URL)
	require.NoError(t, err)
	assert.Equal(t, "무선 이어폰", got.Name)
	assert.Equal(t, []string{"rocket_delivery"}, got.Benefits)
	require.NotNil(t, got.DiscountRate)
	assert.Equal(t, 50.0, *got.DiscountRate)
	assert.True(t, got.RocketDelivery)
}

func TestGormStore_SaveRecordUpsertsByURL(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.SaveRecord(ctx, createTestProduct("https://www.coupang.com/vp/products/2", 10000))
	require.NoError(t, err)

	again := createTestProduct("https://www.coupang.com/vp/products/2", 8000)
	second, err := s.SaveRecord(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := s.Product(ctx, again.URL)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice)
	assert.Equal(t, 8000.0, *got.CurrentPrice)

	var count int64
	require.NoError(t, s.db.Model(&ProductRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormStore_SaveRecordValidation(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.SaveRecord(context.Background(), &models.Product{Name: "no url"})
	assert.Equal(t, engine.KindPersistence, engine.KindOf(err))

	_, err = s.SaveRecord(context.Background(), nil)
	assert.Error(t, err)
}

func TestGormStore_PriceHistory(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := createTestProduct("https://www.coupang.com/vp/products/3", 5000)
	id, err := s.SaveRecord(ctx, p)
	require.NoError(t, err)

	for _, price := range []float64{5000, 4500, 4900} {
		require.NoError(t, s.SaveHistoryPoint(ctx, id, price))
	}

	history, err := s.History(ctx, p.URL)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 5000.0, history[0].Price)
	assert.Equal(t, 4900.0, history[2].Price)
	for _, h := range history {
		assert.Equal(t, id, h.ProductID)
		assert.False(t, h.RecordedAt.IsZero())
	}
}

func TestGormStore_HistoryErrors(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.History(ctx, "https://www.coupang.com/vp/products/404")
	assert.ErrorIs(t, err, ErrProductNotFound)

	err = s.SaveHistoryPoint(ctx, "not-a-uuid", 1)
	assert.Equal(t, engine.KindPersistence, engine.KindOf(err))

	err = s.SaveHistoryPoint(ctx, "6f1c2b9e-2a43-4d4f-9c3a-1d2e3f4a5b6c", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestNewGormStore_ExistingConnection(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s, err := NewGormStore(db)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, db.Migrator().HasTable(&ProductRecord{}))
	assert.True(t, db.Migrator().HasTable(&PriceHistoryRecord{}))
}

func TestDialectorFor(t *testing.T) {
	tests := map[string]string{
		"file:dealcrawl.db":                    "sqlite",
		"sqlite:///tmp/x.db":                   "sqlite",
		":memory:":                             "sqlite",
		"mysql://user:pw@tcp(db:3306)/deals":   "mysql",
		"user:pw@tcp(localhost:3306)/deals":    "mysql",
		"user:pw@unix(/var/run/mysql.sock)/db": "mysql",
	}
	for dsn, want := range tests {
		_, got := dialectorFor(dsn)
		assert.Equal(t, want, got, dsn)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := map[string]string{
		"file:dealcrawl.db":               "file:dealcrawl.db?_busy_timeout=5000",
		"file:deals.db?cache=shared":      "file:deals.db?cache=shared&_busy_timeout=5000",
		"file:deals.db?_busy_timeout=100": "file:deals.db?_busy_timeout=100",
		":memory:":                        ":memory:",
	}
	for dsn, want := range tests {
		assert.Equal(t, want, sqliteDSN(dsn), dsn)
	}
}

func TestGormStore_ConcurrentSavesOnFile(t *testing.T) {
	s, err := Open("file:" + filepath.Join(t.TempDir(), "dealcrawl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	const workers, perWorker = 4, 25
	ctx := context.Background()
	errs := make(chan error, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Half the URLs repeat across workers to exercise the upsert
				url := fmt.Sprintf("https://www.coupang.com/vp/products/%d", i)
				if i%2 == 1 {
					url = fmt.Sprintf("https://www.coupang.com/vp/products/%d-%d", w, i)
				}
				p := createTestProduct(url, float64(1000+i))
				id, err := s.SaveRecord(ctx, p)
				if err != nil {
					errs <- err
					continue
				}
				if err := s.SaveHistoryPoint(ctx, id, *p.CurrentPrice); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent save failed: %v", err)
	}

	history, err := s.History(ctx, "https://www.coupang.com/vp/products/0")
	require.NoError(t, err)
	assert.Len(t, history, workers)
}
