package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/bizsite-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/bizsite-ai-platform/internal/agent"
	"github.com/wolfman30/bizsite-ai-platform/internal/app/bootstrap"
	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
	appconfig "github.com/wolfman30/bizsite-ai-platform/internal/config"
	"github.com/wolfman30/bizsite-ai-platform/internal/leads"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// defaultScript walks a visitor from discovery to a captured lead.
var defaultScript = []string{
	"Hola, ¿qué servicios ofrecen?",
	"Me interesa la consultoría para mi empresa",
	"¿Cuánto cuesta el Plan Estratégico Empresarial?",
	"¿Cómo ayudaría a mis ventas?",
	"Quiero una cotización",
	"Juan Pérez",
	"987654321",
	"juan@acme.com",
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	interactive := flag.Bool("i", false, "read visitor messages from stdin instead of the built-in script")
	orgID := flag.String("org", "smoke-org", "org id for the conversation")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.NewWithFormat("warn", "text")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	engine, repo, cleanup, err := buildEngine(ctx, cfg, *orgID, logger)
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}
	defer cleanup()

	fmt.Printf("Sales agent smoke test (provider=%s, org=%s)\n", cfg.CompletionProvider, *orgID)
	var input io.Reader
	if *interactive {
		input = os.Stdin
		fmt.Println("Type a message, empty line to quit.")
	} else {
		input = strings.NewReader(strings.Join(defaultScript, "\n"))
	}
	if err := converse(ctx, engine, *orgID, input, os.Stdout); err != nil {
		log.Fatalf("conversation failed: %v", err)
	}

	stored, err := repo.ListByOrg(ctx, *orgID, leads.ListLeadsFilter{Limit: 10})
	if err != nil {
		log.Fatalf("list leads: %v", err)
	}
	fmt.Printf("\nLeads captured: %d\n", len(stored))
	for _, l := range stored {
		fmt.Printf("  %s | %s | %s | %s\n", l.Name, l.Phone, l.Email, l.Interest)
	}
}

// buildEngine uses the configured completion provider with an in-memory
// catalog seeded with demo services and an in-memory lead store.
func buildEngine(ctx context.Context, cfg *appconfig.Config, orgID string, logger *logging.Logger) (*agent.Engine, leads.Repository, func(), error) {
	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		awsCfg = &loaded
	}

	client, cleanup, err := bootstrap.BuildCompletionClient(ctx, cfg, awsCfg, nil, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	store := catalog.NewMemoryStore()
	if err := seedCatalog(ctx, store, orgID); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	repo := leads.NewInMemoryRepository()

	engine, err := bootstrap.BuildAgentEngine(cfg, bootstrap.AgentDeps{
		Catalog:    store,
		Completion: client,
		Leads:      repo,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return engine, repo, cleanup, nil
}

func seedCatalog(ctx context.Context, store catalog.Store, orgID string) error {
	categories := []catalog.CategoryDraft{
		{OrgID: orgID, Name: "Consultoría", Description: "Asesoría estratégica para empresas"},
		{OrgID: orgID, Name: "Marketing Digital", Description: "Posicionamiento y campañas en línea"},
	}
	ids := make(map[string]string, len(categories))
	for _, draft := range categories {
		cat, err := store.CreateCategory(ctx, draft)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", draft.Name, err)
		}
		ids[cat.Name] = cat.ID
	}

	price := 3500.0
	seoPrice := 1500.0
	items := []catalog.ItemDraft{
		{OrgID: orgID, Kind: catalog.KindService, Title: "Plan Estratégico Empresarial", CategoryID: ids["Consultoría"], Description: "Diagnóstico y hoja de ruta a 12 meses", Price: &price},
		{OrgID: orgID, Kind: catalog.KindService, Title: "Auditoría SEO", CategoryID: ids["Marketing Digital"], Description: "Revisión técnica y de contenidos del sitio", Price: &seoPrice},
	}
	for _, draft := range items {
		if _, err := store.CreateItem(ctx, draft); err != nil {
			return fmt.Errorf("seed item %s: %w", draft.Title, err)
		}
	}
	return nil
}

// converse sends one turn per input line until EOF or an empty line.
func converse(ctx context.Context, engine *agent.Engine, orgID string, in io.Reader, out io.Writer) error {
	sessionID := ""
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return nil
		}
		start := time.Now()
		reply, err := engine.HandleMessage(ctx, agent.MessageRequest{Text: text, SessionID: sessionID, OrgID: orgID})
		if err != nil {
			if agent.IsValidationError(err) {
				fmt.Fprintf(out, "  ! %v\n", err)
				continue
			}
			return err
		}
		sessionID = reply.SessionID
		fmt.Fprintf(out, "\n> %s\n[level %d | %s | %v]\n%s\n", text, reply.Level, reply.Route, time.Since(start).Round(time.Millisecond), reply.Message)
	}
	return scanner.Err()
}
