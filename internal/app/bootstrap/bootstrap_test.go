package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
	"github.com/wolfman30/bizsite-ai-platform/internal/completion"
	"github.com/wolfman30/bizsite-ai-platform/internal/compliance"
	appconfig "github.com/wolfman30/bizsite-ai-platform/internal/config"
	"github.com/wolfman30/bizsite-ai-platform/internal/leads"
	"github.com/wolfman30/bizsite-ai-platform/internal/notify"
	"github.com/wolfman30/bizsite-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

func testLogger() *logging.Logger { return logging.New("error") }

func TestBuildRedisClient(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, testLogger(), true))

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, testLogger(), true)
	require.NotNil(t, client)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, testLogger(), true), "unreachable redis is disabled")
}

func TestBuildPostgresPool(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), "", testLogger())
	assert.NoError(t, err)
	assert.Nil(t, pool)

	_, err = BuildPostgresPool(context.Background(), "postgres://%zz", testLogger())
	assert.ErrorContains(t, err, "parse database url")
}

func TestBuildMongoClientDisabled(t *testing.T) {
	client, err := BuildMongoClient(context.Background(), &appconfig.Config{}, testLogger())
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestBuildCatalogStore(t *testing.T) {
	ctx := context.Background()
	cfg := &appconfig.Config{CatalogCacheTTL: time.Minute}

	store, err := BuildCatalogStore(ctx, cfg, nil, nil, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &catalog.MemoryStore{}, store)

	mr := miniredis.RunT(t)
	redisClient := BuildRedisClient(ctx, &appconfig.Config{RedisAddr: mr.Addr()}, testLogger(), false)
	defer redisClient.Close()

	store, err = BuildCatalogStore(ctx, cfg, nil, redisClient, testLogger())
	require.NoError(t, err)
	require.IsType(t, &catalog.CachedStore{}, store)

	_, err = store.CreateCategory(ctx, catalog.CategoryDraft{OrgID: "org-1", Name: "Consultoría", Description: "Asesoría para empresas"})
	require.NoError(t, err)
	snap, err := store.Snapshot(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, snap.Categories, 1)
	assert.True(t, mr.Exists("catalog:snapshot:org-1"), "snapshot is cached in redis")

	_, err = BuildCatalogStore(ctx, nil, nil, nil, testLogger())
	assert.Error(t, err)
}

func TestBuildCompletionClient(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewChatMetrics(prometheus.NewRegistry())
	awsCfg := &aws.Config{Region: "us-east-1"}

	tests := []struct {
		name     string
		cfg      appconfig.Config
		aws      *aws.Config
		wantType any
		wantErr  string
	}{
		{name: "none", cfg: appconfig.Config{CompletionProvider: "none"}, wantType: completion.Unavailable{}},
		{name: "openai", cfg: appconfig.Config{CompletionProvider: "openai", OpenAIAPIKey: "sk-test"}, wantType: &completion.BreakerClient{}},
		{name: "same fallback ignored", cfg: appconfig.Config{CompletionProvider: "openai", CompletionFallback: "openai", OpenAIAPIKey: "sk-test"}, wantType: &completion.BreakerClient{}},
		{name: "openai with bedrock fallback", cfg: appconfig.Config{CompletionProvider: "openai", CompletionFallback: "bedrock", OpenAIAPIKey: "sk-test", BedrockModelID: "anthropic.claude-3-haiku"}, aws: awsCfg, wantType: &completion.FallbackClient{}},
		{name: "openai missing key", cfg: appconfig.Config{CompletionProvider: "openai"}, wantErr: "api key"},
		{name: "bedrock without aws", cfg: appconfig.Config{CompletionProvider: "bedrock", BedrockModelID: "m"}, wantErr: "aws config"},
		{name: "bedrock without model", cfg: appconfig.Config{CompletionProvider: "bedrock"}, aws: awsCfg, wantErr: "model id"},
		{name: "gemini missing key", cfg: appconfig.Config{CompletionProvider: "gemini"}, wantErr: "api key"},
		{name: "unknown", cfg: appconfig.Config{CompletionProvider: "llama"}, wantErr: "unknown completion provider"},
		{name: "bad fallback", cfg: appconfig.Config{CompletionProvider: "openai", CompletionFallback: "llama", OpenAIAPIKey: "sk-test"}, wantErr: "unknown completion provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, cleanup, err := BuildCompletionClient(ctx, &tt.cfg, tt.aws, m, testLogger())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer cleanup()
			assert.IsType(t, tt.wantType, client)
		})
	}
}

func TestBuildEmailSender(t *testing.T) {
	awsCfg := &aws.Config{Region: "us-east-1"}
	tests := []struct {
		name     string
		cfg      appconfig.Config
		aws      *aws.Config
		wantType any
		wantErr  bool
	}{
		{name: "stub", cfg: appconfig.Config{EmailProvider: "stub"}, wantType: &notify.StubEmailSender{}},
		{name: "sendgrid", cfg: appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.test"}, wantType: &notify.SendGridSender{}},
		{name: "sendgrid without key", cfg: appconfig.Config{EmailProvider: "sendgrid"}, wantErr: true},
		{name: "ses", cfg: appconfig.Config{EmailProvider: "ses"}, aws: awsCfg, wantType: &notify.SESSender{}},
		{name: "ses without aws", cfg: appconfig.Config{EmailProvider: "ses"}, wantErr: true},
		{name: "unknown", cfg: appconfig.Config{EmailProvider: "pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := BuildEmailSender(&tt.cfg, tt.aws, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, sender)
		})
	}
}

func TestBuildLeadRepository(t *testing.T) {
	cfg := &appconfig.Config{BusinessName: "Acme"}
	repo := BuildLeadRepository(cfg, nil, notify.NewStubEmailSender(testLogger()), testLogger())
	assert.IsType(t, &leads.InMemoryRepository{}, repo)

	cfg.LeadNotifyAddress = "ventas@acme.pe, , gerencia@acme.pe"
	repo = BuildLeadRepository(cfg, nil, notify.NewStubEmailSender(testLogger()), testLogger())
	require.IsType(t, &leads.NotifyingRepository{}, repo)

	lead, err := repo.Create(context.Background(), &leads.CreateLeadRequest{OrgID: "org-1", Name: "Ana", Email: "ana@x.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)

	assert.Equal(t, []string{"ventas@acme.pe", "gerencia@acme.pe"}, splitAddresses(cfg.LeadNotifyAddress))
}

func TestBuildAgentEngine(t *testing.T) {
	cfg := &appconfig.Config{BusinessName: "Acme"}

	_, err := BuildAgentEngine(cfg, AgentDeps{}, testLogger())
	assert.ErrorContains(t, err, "lead repository")

	_, err = BuildAgentEngine(&appconfig.Config{AgentRulesPath: "/nonexistent/rules.yaml"}, AgentDeps{Leads: leads.NewInMemoryRepository()}, testLogger())
	assert.ErrorContains(t, err, "read rules")

	engine, err := BuildAgentEngine(cfg, AgentDeps{Leads: leads.NewInMemoryRepository()}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, engine)
}

func TestBuildAuditorWithoutDatabase(t *testing.T) {
	auditor := BuildAuditor(nil, testLogger())
	assert.IsType(t, &compliance.LogAuditor{}, auditor)
	assert.NoError(t, auditor.LogOffTopicRefused(context.Background(), "org-1", "s-1", "medical"))
}
