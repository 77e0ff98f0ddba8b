package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerRecordsThroughChain(t *testing.T) {
	led := NewLedger()
	fake := &Fake{}
	cli := Chain(fake, Record(led))

	_, err := cli.GenerateJSON(context.Background(), Request{Model: "m1", Shape: ShapeDigest})
	require.NoError(t, err)
	_, err = cli.GenerateJSON(context.Background(), Request{Model: "m1", Shape: ShapeSelfcheck})
	require.NoError(t, err)

	entries := led.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "selfcheck", entries[0].Kind, "entries are newest-first")
	require.Equal(t, "digest", entries[1].Kind)
	require.Equal(t, "ok", entries[0].Status)
	require.NotEmpty(t, entries[0].ID)
}

func TestLedgerRecordsErrors(t *testing.T) {
	led := NewLedger()
	fake := &Fake{Errors: []error{&FatalError{Err: errors.New("bad key")}}}
	cli := Chain(fake, Record(led))

	_, err := cli.GenerateJSON(context.Background(), Request{Model: "m1"})
	require.Error(t, err)

	entries := led.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "error", entries[0].Status)
	require.Contains(t, entries[0].Error, "bad key")
}

func TestLedgerToggleAndClear(t *testing.T) {
	led := NewLedger()
	require.True(t, led.Enabled())

	led.SetEnabled(false)
	led.Append(Entry{Model: "m"})
	require.Empty(t, led.Entries())

	led.SetEnabled(true)
	led.Append(Entry{Model: "m"})
	require.Len(t, led.Entries(), 1)

	led.Clear()
	require.Empty(t, led.Entries())
}

func TestLedgerBounded(t *testing.T) {
	led := NewLedger()
	for i := 0; i < maxLedgerEntries+25; i++ {
		led.Append(Entry{Model: fmt.Sprintf("m%d", i)})
	}
	entries := led.Entries()
	require.Len(t, entries, maxLedgerEntries)
	require.Equal(t, fmt.Sprintf("m%d", maxLedgerEntries+24), entries[0].Model)
}

func TestLedgerStats(t *testing.T) {
	led := NewLedger()
	led.Append(Entry{Model: "a", Kind: "digest", Status: "ok", DurationMs: 100})
	led.Append(Entry{Model: "a", Kind: "selfcheck", Status: "ok", DurationMs: 200})
	led.Append(Entry{Model: "b", Kind: "digest", Status: "error", DurationMs: 300})

	s := led.Stats()
	require.Equal(t, 3, s.TotalCalls)
	require.Equal(t, 1, s.Errors)
	require.Equal(t, 2, s.ByModel["a"])
	require.Equal(t, 2, s.ByKind["digest"])
	require.Equal(t, int64(200), s.AvgMs)
}
