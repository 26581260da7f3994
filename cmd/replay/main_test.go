package main

import (
	"context"
	"errors"
	"testing"

	"dutchAuction/crypto"
	"dutchAuction/db"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestResolveRun(t *testing.T) {
	ctx := context.Background()
	file := "data/2026-10-17T123456.789Z.csv"
	stored := &db.RunRecord{RunID: "6f1c2a9e-0000-4000-8000-000000000001", SeedHash: crypto.HashSeed("lab")}

	var asked []string
	found := func(_ context.Context, name string) (*db.RunRecord, error) {
		asked = append(asked, name)
		return stored, nil
	}
	notFound := func(context.Context, string) (*db.RunRecord, error) { return nil, nil }

	run, id, err := resolveRun(ctx, "", file, found)
	assert.NoError(t, err)
	check.Equal(t, stored.RunID, id)
	check.True(t, run == stored)
	check.Equal(t, []string{"2026-10-17T123456.789Z.csv"}, asked)

	run, id, err = resolveRun(ctx, "", file, notFound)
	assert.NoError(t, err)
	check.True(t, run == nil)
	check.Equal(t, "2026-10-17T123456.789Z", id)

	run, id, err = resolveRun(ctx, "", file, nil)
	assert.NoError(t, err)
	check.True(t, run == nil)
	check.Equal(t, "2026-10-17T123456.789Z", id)

	asked = nil
	_, id, err = resolveRun(ctx, "explicit-run", file, found)
	assert.NoError(t, err)
	check.Equal(t, "explicit-run", id)
	check.Equal(t, 0, len(asked))

	_, _, err = resolveRun(ctx, "", file, func(context.Context, string) (*db.RunRecord, error) {
		return nil, errors.New("connection reset")
	})
	check.Error(t, err)
}

func TestCheckStoredSeed(t *testing.T) {
	check.NoError(t, checkStoredSeed(nil, "lab"))
	check.NoError(t, checkStoredSeed(&db.RunRecord{RunID: "r"}, "lab"))
	check.NoError(t, checkStoredSeed(&db.RunRecord{RunID: "r", SeedHash: crypto.HashSeed("lab")}, "lab"))
	check.Error(t, checkStoredSeed(&db.RunRecord{RunID: "r", SeedHash: crypto.HashSeed("lab")}, "other"))
}
