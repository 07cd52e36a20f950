package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/banter/pkg/adapter"
	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/service/gateway"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

type mockKeyStore struct {
	keys []*model.APIKey
	err  error
}

func (m *mockKeyStore) ListAPIKeys(ctx context.Context) ([]*model.APIKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.keys, nil
}

// echoFactory builds mock clients that answer with the credential they
// were created for, so round-robin order is observable
func echoFactory(built *[]string) adapter.Factory {
	return func(ctx context.Context, apiKey string) (adapter.Gemini, error) {
		if built != nil {
			*built = append(*built, apiKey)
		}
		return &mockGemini{
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return textResponse(`{"key": "` + apiKey + `"}`), nil
			},
		}, nil
	}
}

var keySchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"key": {Type: "string"},
	},
	Required: []string{"key"},
}

func acquireKey(t *testing.T, p *gateway.Pool) string {
	t.Helper()
	gen, err := p.Acquire(context.Background())
	gt.NoError(t, err)

	var out struct {
		Key string `json:"key"`
	}
	gt.NoError(t, gen.Generate(context.Background(), "which key", keySchema, &out))
	return out.Key
}

func TestPoolRoundRobin(t *testing.T) {
	store := &mockKeyStore{keys: []*model.APIKey{
		{ID: "k1", Name: "first", Secret: "secret-1"},
		{ID: "k2", Name: "second", Secret: "secret-2"},
		{ID: "k3", Name: "third", Secret: "secret-3"},
	}}

	pool := gateway.NewPool(store, echoFactory(nil))

	gt.V(t, acquireKey(t, pool)).Equal("secret-1")
	gt.V(t, acquireKey(t, pool)).Equal("secret-2")
	gt.V(t, acquireKey(t, pool)).Equal("secret-3")
	gt.V(t, acquireKey(t, pool)).Equal("secret-1")
}

func TestPoolEmptyStoreFallback(t *testing.T) {
	fallbackGemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(`{"key": "system"}`), nil
		},
	}

	pool := gateway.NewPool(&mockKeyStore{}, echoFactory(nil),
		gateway.WithFallback(gateway.New(fallbackGemini)))

	gt.V(t, acquireKey(t, pool)).Equal("system")
}

func TestPoolEmptyStoreNoFallback(t *testing.T) {
	pool := gateway.NewPool(&mockKeyStore{}, echoFactory(nil))

	_, err := pool.Acquire(context.Background())
	gt.Error(t, err)
	gt.True(t, errors.Is(err, gateway.ErrNoCredential))
}

func TestPoolTTLRefresh(t *testing.T) {
	store := &mockKeyStore{keys: []*model.APIKey{
		{ID: "k1", Name: "first", Secret: "secret-1"},
	}}

	now := time.Now()
	clock := func() time.Time { return now }

	var built []string
	pool := gateway.NewPool(store, echoFactory(&built),
		gateway.WithTTL(time.Minute),
		gateway.WithClock(clock))

	gt.V(t, acquireKey(t, pool)).Equal("secret-1")
	gt.V(t, acquireKey(t, pool)).Equal("secret-1")
	gt.A(t, built).Length(1)

	// A new key shows up only after the cache expires
	store.keys = append(store.keys, &model.APIKey{ID: "k2", Name: "second", Secret: "secret-2"})
	gt.V(t, acquireKey(t, pool)).Equal("secret-1")
	gt.A(t, built).Length(1)

	now = now.Add(2 * time.Minute)
	gt.V(t, acquireKey(t, pool)).Equal("secret-1")
	gt.V(t, acquireKey(t, pool)).Equal("secret-2")
	gt.A(t, built).Length(3)
}

func TestPoolRefreshFailureKeepsStaleSet(t *testing.T) {
	store := &mockKeyStore{keys: []*model.APIKey{
		{ID: "k1", Name: "first", Secret: "secret-1"},
	}}

	now := time.Now()
	clock := func() time.Time { return now }

	pool := gateway.NewPool(store, echoFactory(nil),
		gateway.WithTTL(time.Minute),
		gateway.WithClock(clock))

	gt.V(t, acquireKey(t, pool)).Equal("secret-1")

	// The store goes down past the TTL; stale gateways keep serving
	store.err = errors.New("backend unavailable")
	now = now.Add(2 * time.Minute)
	gt.V(t, acquireKey(t, pool)).Equal("secret-1")
}
