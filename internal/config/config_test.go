package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== Load 测试 ==========

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "shop-ai", cfg.App.Name)
	assert.Equal(t, 3, cfg.Agent.MaxToolIterations)
	assert.Equal(t, 20, cfg.Agent.HistoryLimit)
	assert.Equal(t, 5, cfg.Agent.ClassifyWindow)
	assert.Equal(t, 10, cfg.Agent.RespondWindow)
	assert.Equal(t, 5, cfg.Agent.MaxSuggestions)
	assert.InDelta(t, 0.3, cfg.Search.MinScore, 1e-9)
	assert.InDelta(t, 0.2, cfg.Search.SimilarMinScore, 1e-9)
	assert.Equal(t, 10, cfg.Search.MaxToolLimit)
	assert.Equal(t, 4, cfg.Search.ScorePrecision)
	assert.Equal(t, "elasticsearch", cfg.Vector.Backend)
	assert.Equal(t, 30, cfg.Elastic.Timeout)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
database:
  driver: sqlite
  path: test.db
vector:
  backend: memory
agent:
  maxToolIterations: 2
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("SHOP_AI_SEARCH_MINSCORE", "0.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "test.db", cfg.Database.GetDSN())
	assert.Equal(t, "memory", cfg.Vector.Backend)
	assert.Equal(t, 2, cfg.Agent.MaxToolIterations)
	assert.InDelta(t, 0.5, cfg.Search.MinScore, 1e-9)
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector:\n  backend: faiss\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "faiss")
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", c.GetDSN())
}

// ========== ParamStore 测试 ==========

type fakeSSM struct {
	values map[string]string
	err    error
	names  []string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.names = append(f.names, *in.Name)
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[*in.Name]
	if !ok {
		return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name}}, nil
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: &v}}, nil
}

func TestParamStore_GetParameter(t *testing.T) {
	api := &fakeSSM{values: map[string]string{"/shop-ai/jwt-secret": "s3cret"}}
	store, err := NewParamStore(api)
	require.NoError(t, err)

	v, err := store.GetParameter(context.Background(), " /shop-ai/jwt-secret ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	_, err = store.GetParameter(context.Background(), "/shop-ai/other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing value")

	_, err = store.GetParameter(context.Background(), "  ")
	require.Error(t, err)
}

func TestNewParamStore_NilAPI(t *testing.T) {
	_, err := NewParamStore(nil)
	require.Error(t, err)
}

func TestResolveSecrets_FillsOnlyEmpty(t *testing.T) {
	values := map[string]string{}
	for _, name := range []string{"openai-api-key", "dashscope-api-key", "deepseek-api-key", "gemini-api-key", "embedding-api-key", "jwt-secret", "elastic-password"} {
		values["/shop-ai/"+name] = "from-ssm-" + name
	}
	api := &fakeSSM{values: values}
	store, err := NewParamStore(api)
	require.NoError(t, err)

	cfg := &Config{Secrets: SecretsConfig{Provider: "ssm", Prefix: "/shop-ai"}}
	cfg.Auth.JWTSecret = "from-env"

	require.NoError(t, ResolveSecrets(context.Background(), cfg, store))
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "from-ssm-openai-api-key", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, "from-ssm-embedding-api-key", cfg.Embedding.APIKey)
	assert.NotContains(t, api.names, "/shop-ai/jwt-secret")
}

func TestResolveSecrets_PropagatesError(t *testing.T) {
	store, err := NewParamStore(&fakeSSM{err: errors.New("boom")})
	require.NoError(t, err)

	cfg := &Config{Secrets: SecretsConfig{Provider: "ssm", Prefix: "/shop-ai"}}
	err = ResolveSecrets(context.Background(), cfg, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
