package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/pokedex/internal/repo"
	"github.com/Skotchmaster/pokedex/internal/species"
	pkgdb "github.com/Skotchmaster/pokedex/pkg/db"
	"github.com/Skotchmaster/pokedex/pkg/hash"
	"github.com/Skotchmaster/pokedex/pkg/tokens"
)

var testSecret = []byte("service-test-secret-0123456789")

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _ := event.(map[string]any)
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Event["type"].(string))
	}
	return out
}

type fakeFetcher struct {
	known map[string]*species.Species
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, name string) (*species.Species, error) {
	f.calls++
	if sp, ok := f.known[name]; ok {
		return sp, nil
	}
	return nil, species.ErrNotFound
}

func pikachu() *species.Species {
	return &species.Species{
		ID:        25,
		Name:      "Pikachu",
		Abilities: []string{"Static", "Lightning-Rod"},
		Types:     []string{"Electric"},
		Image:     "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/25.png",
	}
}

type testServices struct {
	Repo    *repo.GormRepo
	Auth    *AuthService
	Pokedex *PokedexService
	Events  *fakePublisher
	Species *fakeFetcher
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	ctx := context.Background()
	db, err := pkgdb.Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })
	require.NoError(t, repo.Migrate(ctx, db))

	r := &repo.GormRepo{DB: db}
	require.NoError(t, r.EnsureRoles(ctx, repo.DefaultRoles...))

	tk, err := tokens.NewService(testSecret, 15*time.Minute)
	require.NoError(t, err)

	events := &fakePublisher{}
	fetcher := &fakeFetcher{known: map[string]*species.Species{"pikachu": pikachu()}}

	return &testServices{
		Repo: r,
		Auth: &AuthService{
			Repo:        r,
			Tokens:      tk,
			Hasher:      hash.New(hash.MinIterations),
			DefaultRole: "user",
			Events:      events,
		},
		Pokedex: &PokedexService{
			Repo:    r,
			Species: fetcher,
			Events:  events,
		},
		Events:  events,
		Species: fetcher,
	}
}
