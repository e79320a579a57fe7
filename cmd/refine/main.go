// Command refine runs one refinement session from a YAML session config
// and prints the iteration-by-iteration audit trail as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ahrav/go-refine/infrastructure/llm"
	"github.com/ahrav/go-refine/infrastructure/steps"
	"github.com/ahrav/go-refine/internal/domain"
	"github.com/ahrav/go-refine/internal/engine"
	"github.com/ahrav/go-refine/internal/ports"
)

func main() {
	var (
		configPath = flag.String("config", "refine.yaml", "Path to the session config")
		provider   = flag.String("provider", "anthropic", "LLM provider: openai, anthropic, or google")
		schemaPath = flag.String("schema", "", "Path to the target JSON schema")
		promptPath = flag.String("prompt", "", "Path to the generation prompt template")
	)
	flag.Parse()

	policy, runnerCfg, err := engine.LoadSessionConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load session config: %v", err)
	}

	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("Failed to read schema: %v", err)
	}
	promptTemplate, err := os.ReadFile(*promptPath)
	if err != nil {
		log.Fatalf("Failed to read prompt template: %v", err)
	}

	client, err := llm.NewClient(*provider, llm.ClientConfig{
		APIKey: os.Getenv(apiKeyEnv(*provider)),
		Middleware: []llm.Middleware{
			llm.RetryMiddleware(3, 500*time.Millisecond, 10*time.Second),
			llm.TimeoutMiddleware(60 * time.Second),
		},
	})
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	generator, err := steps.NewArtifactGenerator(client, steps.GeneratorConfig{
		PromptTemplate: string(promptTemplate),
		Schema:         string(schema),
	})
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	validator, err := steps.NewQualityValidator(client, policy, steps.ValidatorConfig{})
	if err != nil {
		log.Fatalf("Failed to create validator: %v", err)
	}
	corrector, err := steps.NewArtifactCorrector(client, steps.CorrectorConfig{
		Schema: string(schema),
	})
	if err != nil {
		log.Fatalf("Failed to create corrector: %v", err)
	}

	runnerCfg.Observer = ports.ProgressFunc(func(event ports.ProgressEvent) {
		if event.Verdict != nil {
			log.Printf("iteration %d: %s (%s)", event.Index, event.Phase, event.Verdict)
			return
		}
		log.Printf("iteration %d: %s", event.Index, event.Phase)
	})

	runner, err := engine.NewRunner(policy, runnerCfg)
	if err != nil {
		log.Fatalf("Failed to create runner: %v", err)
	}

	run, err := runner.Run(context.Background(), generator, validator, corrector)
	if err != nil {
		log.Fatalf("Refinement failed: %v", err)
	}

	printAuditTrail(run)
}

// printAuditTrail writes the run history and committed result to stdout.
func printAuditTrail(run *domain.LoopRun) {
	out, err := json.MarshalIndent(run.Snapshot(), "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode audit trail: %v", err)
	}
	fmt.Println(string(out))

	committed, _ := run.Committed()
	fmt.Printf("\nStatus: %s\n", run.TerminalStatus())
	fmt.Printf("Committed iteration: %d (verdict %s, score %.2f)\n",
		committed.Index, committed.Verdict, committed.Metrics.OverallScore)
}

// apiKeyEnv maps a provider name to its conventional API key variable.
func apiKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GEMINI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}
