package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", common.HistoryFileName), common.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(entry string, at time.Time, rx uint64) Sample {
	return Sample{
		Time:             at,
		Handle:           0x10,
		EntryName:        entry,
		EntryID:          uuid.MustParse("3b241101-e2bb-4255-8caf-4136c566a962"),
		BytesReceived:    rx,
		BytesTransmitted: rx / 2,
		Errors:           1,
		Duration:         90 * time.Second,
	}
}

func TestRecordAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx,
		sample("Office VPN", base, 100),
		sample("Office VPN", base.Add(time.Minute), 200),
		sample("Home DSL", base.Add(30*time.Second), 50),
	))

	all, err := s.Samples(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Office VPN", all[0].EntryName)
	assert.Equal(t, "Home DSL", all[1].EntryName)
	assert.True(t, all[2].Time.Equal(base.Add(time.Minute)))

	vpn, err := s.Samples(ctx, Query{EntryName: "Office VPN"})
	require.NoError(t, err)
	require.Len(t, vpn, 2)
	got := vpn[1]
	assert.Equal(t, uint64(200), got.BytesReceived)
	assert.Equal(t, uint64(100), got.BytesTransmitted)
	assert.Equal(t, uint64(1), got.Errors)
	assert.Equal(t, 90*time.Second, got.Duration)
	assert.Equal(t, ras.Handle(0x10), got.Handle)
	assert.Equal(t, uuid.MustParse("3b241101-e2bb-4255-8caf-4136c566a962"), got.EntryID)

	latest, err := s.Samples(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, uint64(200), latest[0].BytesReceived)

	since, err := s.Samples(ctx, Query{Since: base.Add(20 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home DSL", "Office VPN"}, entries)
}

func TestRecordNothing(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Record(context.Background()))

	all, err := s.Samples(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx,
		sample("Office VPN", base, 1),
		sample("Office VPN", base.Add(time.Hour), 2),
		sample("Office VPN", base.Add(2*time.Hour), 3),
	))

	n, err := s.Prune(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.Samples(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, uint64(3), left[0].BytesReceived)
}

func TestReopenKeepsSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), common.HistoryFileName)
	ctx := context.Background()

	s, err := Open(path, common.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, sample("Office VPN", time.Now(), 42)))
	require.NoError(t, s.Close())

	s, err = Open(path, common.NopLogger{})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	all, err := s.Samples(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uint64(42), all[0].BytesReceived)
}

type stubConn struct {
	ras.Conn
}

func (stubConn) Handle() ras.Handle { return 7 }
func (stubConn) EntryName() string  { return "Backup Modem" }
func (stubConn) EntryID() uuid.UUID { return uuid.Nil }

func TestNewSample(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stats := &ras.ConnectionStatistics{
		BytesTransmitted:   10,
		BytesReceived:      20,
		FramesTransmitted:  3,
		FramesReceived:     4,
		CrcErrors:          1,
		FramingErrors:      2,
		ConnectionDuration: time.Minute,
	}

	sm := NewSample(stubConn{}, stats, at)
	assert.Equal(t, ras.Handle(7), sm.Handle)
	assert.Equal(t, "Backup Modem", sm.EntryName)
	assert.Equal(t, uint64(3), sm.Errors)
	assert.Equal(t, time.Minute, sm.Duration)
	assert.Equal(t, at, sm.Time)
}
