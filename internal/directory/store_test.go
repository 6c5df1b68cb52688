package directory_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tutorfinder/internal/directory"
	"tutorfinder/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RefreshNormalizes(t *testing.T) {
	payload := `[
		{"id":"p1","ownerId":"u1","name":"Ayesha","service":"Math Tutor","lat":"30.17","lng":66.99,"rating":"4.5",
		 "userReviews":[{"user":"bob","rating":"5","text":"great"},{"user":"amy","rating":null,"text":""}]},
		{"id":"p2","name":"No rating","service":"Plumber","lat":30.2,"lng":67.0,"rating":null},
		{"id":"p3","name":"Nowhere","service":"Plumber","lat":"unknown","lng":67.0},
		{"id":"p4","name":"Off the map","service":"Plumber","lat":120,"lng":67.0}
	]`
	var raw []directory.RawProvider
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	source := &fakeSource{}
	source.push(sourceResult{providers: raw})
	store := directory.NewStore(source)

	got, err := store.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	p1 := got[0]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, "u1", p1.OwnerID)
	assert.Equal(t, geo.Point{Lat: 30.17, Lng: 66.99}, p1.Location)
	assert.Equal(t, 4.5, p1.Rating)
	assert.Equal(t, []directory.Review{
		{User: "bob", Rating: 5, Text: "great"},
		{User: "amy", Rating: 0, Text: ""},
	}, p1.Reviews)

	assert.Equal(t, "p2", got[1].ID)
	assert.Equal(t, 0.0, got[1].Rating)
	assert.Empty(t, got[1].OwnerID)

	assert.Equal(t, got, store.Snapshot())
	_, ok := store.Lookup("p3")
	assert.False(t, ok)
	found, ok := store.Lookup("p2")
	assert.True(t, ok)
	assert.Equal(t, "No rating", found.Name)
}

func TestStore_FailureKeepsSnapshot(t *testing.T) {
	source := &fakeSource{}
	source.push(sourceResult{providers: []directory.RawProvider{rawAt("p1", "A", "Math Tutor", directory.DefaultAnchor, 4)}})
	source.push(sourceResult{err: errors.New("connection refused")})
	store := directory.NewStore(source)

	_, err := store.Refresh(context.Background())
	require.NoError(t, err)

	_, err = store.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, directory.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "connection refused")

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "p1", snapshot[0].ID)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	source := &fakeSource{}
	source.push(sourceResult{providers: []directory.RawProvider{rawAt("p1", "A", "Math Tutor", directory.DefaultAnchor, 4)}})
	store := directory.NewStore(source)
	_, err := store.Refresh(context.Background())
	require.NoError(t, err)

	snapshot := store.Snapshot()
	snapshot[0].Name = "changed"
	assert.Equal(t, "A", store.Snapshot()[0].Name)
}

func TestStore_DiscardsStaleResponse(t *testing.T) {
	gate := make(chan struct{})
	source := &fakeSource{}
	// first call: old data, held until released
	source.push(sourceResult{providers: []directory.RawProvider{rawAt("old", "Old", "Plumber", directory.DefaultAnchor, 1)}, gate: gate})
	// second call: new data, answers immediately
	source.push(sourceResult{providers: []directory.RawProvider{rawAt("new", "New", "Plumber", directory.DefaultAnchor, 5)}})
	store := directory.NewStore(source)

	firstDone := make(chan error, 1)
	go func() {
		_, err := store.Refresh(context.Background())
		firstDone <- err
	}()

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return source.calls == 1
	}, time.Second, time.Millisecond)

	got, err := store.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)

	close(gate)
	err = <-firstDone
	assert.ErrorIs(t, err, directory.ErrStaleResponse)

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "new", snapshot[0].ID)
}
