package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate_ExactMatch(t *testing.T) {
	store := newFakeStore()
	store.files["/up/20240115_093000_ab12cd34_BS.xlsx"] = []byte("x")
	uploads := &fakeUploads{files: []TemplateFile{
		{ID: 1, StoredFileName: "20240115_093000_ab12cd34_BS.xlsx", FilePath: "/up/20240115_093000_ab12cd34_BS.xlsx"},
	}}

	tf, err := NewTemplateLocator(uploads, store).Locate(context.Background(), "20240115_093000_ab12cd34_BS.xlsx")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tf.ID)
}

func TestLocate_StrippedName(t *testing.T) {
	store := newFakeStore()
	store.files["/up/Income.xlsx"] = []byte("x")
	uploads := &fakeUploads{files: []TemplateFile{
		{ID: 2, StoredFileName: "Income.xlsx", FilePath: "/up/Income.xlsx"},
	}}

	tf, err := NewTemplateLocator(uploads, store).Locate(context.Background(), "income")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tf.ID)
}

func TestLocate_NormalizedName(t *testing.T) {
	store := newFakeStore()
	store.files["/up/20240301_120000_ffee0011_CashFlow.xls"] = []byte("x")
	uploads := &fakeUploads{files: []TemplateFile{
		{ID: 3, StoredFileName: "20240301_120000_ffee0011_CashFlow.xls", FilePath: "/up/20240301_120000_ffee0011_CashFlow.xls"},
	}}

	tf, err := NewTemplateLocator(uploads, store).Locate(context.Background(), "20231201_080000_0a0b_CashFlow.xlsx")
	require.NoError(t, err)
	assert.Equal(t, int64(3), tf.ID)
}

func TestLocate_SkipsStaleRecordAndFallsBack(t *testing.T) {
	store := newFakeStore()
	store.files["/up/20240201_000000_99_BS.xlsx"] = []byte("fresh")
	uploads := &fakeUploads{files: []TemplateFile{
		{ID: 1, StoredFileName: "BS.xlsx", FilePath: "/gone/BS.xlsx"},
		{ID: 2, StoredFileName: "20240201_000000_99_BS.xlsx", FilePath: "/up/20240201_000000_99_BS.xlsx"},
	}}

	tf, err := NewTemplateLocator(uploads, store).Locate(context.Background(), "BS.xlsx")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tf.ID)
}

func TestLocate_StorageScan(t *testing.T) {
	store := newFakeStore()
	store.files["templates/20240115_093000_ab12cd34_Ratios.xlsx"] = []byte("x")
	uploads := &fakeUploads{listErr: errors.New("catalog down")}

	tf, err := NewTemplateLocator(uploads, store).Locate(context.Background(), "Ratios")
	require.NoError(t, err)
	assert.Equal(t, "20240115_093000_ab12cd34_Ratios.xlsx", tf.StoredFileName)
	assert.Equal(t, "templates/20240115_093000_ab12cd34_Ratios.xlsx", tf.FilePath)
}

func TestLocate_NotFound(t *testing.T) {
	uploads := &fakeUploads{files: []TemplateFile{
		{ID: 1, StoredFileName: "Other.xlsx", FilePath: "/up/Other.xlsx"},
	}}

	_, err := NewTemplateLocator(uploads, newFakeStore()).Locate(context.Background(), "Missing.xlsx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	var nf *TemplateNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Missing", nf.Normalized)
	assert.True(t, IsNotFound(err))
}

func TestLocate_StorageErrorIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.files["/up/BS.xlsx"] = []byte("x")
	store.existsErr = errors.New("permission denied")
	uploads := &fakeUploads{files: []TemplateFile{
		{ID: 1, StoredFileName: "BS.xlsx", FilePath: "/up/BS.xlsx", UploadedAt: time.Now()},
	}}

	_, err := NewTemplateLocator(uploads, store).Locate(context.Background(), "BS.xlsx")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestLocate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTemplateLocator(&fakeUploads{}, newFakeStore()).Locate(ctx, "BS")
	assert.ErrorIs(t, err, context.Canceled)
}
