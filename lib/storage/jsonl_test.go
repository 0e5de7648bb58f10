package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftchann/clmm-simulator/lib/events"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJsonlStoragePutEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	s := NewJsonlStorage(path, "")
	pool := solana.NewWallet().PublicKey()

	require.NoError(t, s.PutEvents(nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.PutEvents([]events.Record{
		{Seq: 1, Pool: pool, Timestamp: 10, EventName: "PoolCreated", Data: events.PoolCreatedEvent{PoolState: pool, Tick: -7}},
	}))
	require.NoError(t, s.PutEvents([]events.Record{
		{Seq: 2, Pool: pool, Timestamp: 11, EventName: "Swap", Data: events.SwapEvent{AmountIn: 5}},
		{Seq: 3, Pool: pool, Timestamp: 11, EventName: "UpdateRewardInfos", Data: events.UpdateRewardInfosEvent{}},
	}))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "PoolCreated", lines[0]["event_name"])
	assert.Equal(t, pool.String(), lines[0]["pool"])
	assert.Equal(t, float64(-7), lines[0]["data"].(map[string]any)["tick"])
	assert.Equal(t, float64(3), lines[2]["seq"])
}

func TestJsonlStoragePutResult(t *testing.T) {
	dir := t.TempDir()
	s := NewJsonlStorage(filepath.Join(dir, "events.jsonl"), filepath.Join(dir, "res", "result.json"))

	require.NoError(t, s.PutResult(map[string]int{"a": 1}))
	require.NoError(t, s.PutResult(map[string]int{"b": 2}))

	data, err := os.ReadFile(filepath.Join(dir, "res", "result.json"))
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]int{"b": 2}, got)

	assert.NoError(t, NewJsonlStorage(filepath.Join(dir, "x.jsonl"), "").PutResult(got))
}

func TestJsonlStorageIsStorage(t *testing.T) {
	var _ Storage = NewJsonlStorage("events.jsonl", "")
}
