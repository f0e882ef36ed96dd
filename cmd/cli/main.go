package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowrunio/flowrun/internal/application/runner"
	"github.com/flowrunio/flowrun/internal/config"
	"github.com/flowrunio/flowrun/internal/conversation"
	"github.com/flowrunio/flowrun/internal/domain"
	"github.com/flowrunio/flowrun/internal/executor"
	"github.com/flowrunio/flowrun/internal/infrastructure/logger"
	"github.com/flowrunio/flowrun/internal/infrastructure/monitoring"
	"github.com/flowrunio/flowrun/internal/infrastructure/storage"
	"github.com/flowrunio/flowrun/internal/node"
	"github.com/flowrunio/flowrun/internal/node/builtin"
	"github.com/flowrunio/flowrun/internal/parser"
)

func main() {
	var (
		file = flag.String("file", "dsl/demo.yaml", "path to the workflow document")
		noDB = flag.Bool("no-db", false, "skip database persistence")
		chat = flag.Bool("chat", false, "run an interactive chat loop")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel)

	ctx := context.Background()
	var store domain.Store
	if !*noDB {
		bunStore := storage.NewBunStore(cfg.DatabaseDSN)
		if err := bunStore.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("database initialization failed, running without persistence")
		} else {
			store = bunStore
		}
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Str("path", *file).Err(err).Msg("failed to read workflow document")
	}
	graph, err := parser.Parse(content)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile workflow document")
	}
	log.Info().Str("workflow", graph.WorkflowID).Str("version", graph.Version).Msg("workflow loaded")

	workflowID := uuid.New()
	if store != nil {
		record := &domain.WorkflowRecord{
			ID:         workflowID,
			Name:       graph.WorkflowID,
			Definition: string(content),
			CreatedAt:  time.Now(),
		}
		if err := store.SaveWorkflow(ctx, record); err != nil {
			log.Warn().Err(err).Msg("failed to persist workflow definition")
		}
	}

	registry := node.NewRegistry()
	if err := builtin.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("failed to register builtin nodes")
	}

	engineCfg := executor.DefaultConfig()
	engineCfg.MaxWorkers = cfg.MaxParallelNodes
	run := runner.New(store, registry, monitoring.NewObserverManager(), engineCfg, log)

	if *chat {
		chatLoop(ctx, run, store, graph, workflowID)
		return
	}

	result, err := run.Execute(ctx, graph, workflowID, demoInputs(graph.WorkflowID))
	if err != nil {
		log.Error().Err(err).Msg("execution failed")
	}

	out, _ := json.MarshalIndent(result.Memory, "", "  ")
	fmt.Println("Final memory state:")
	fmt.Println(string(out))
}

// demoInputs seeds a single run with inputs matching the shipped sample
// documents.
func demoInputs(workflowID string) map[string]any {
	if workflowID == "intelligent_qa_demo" {
		return map[string]any{
			"question": "What is the difference between supervised and unsupervised machine learning?",
		}
	}
	return map[string]any{
		"query": "Hello flowrun",
		"a":     10,
		"b":     20,
	}
}

func chatLoop(ctx context.Context, run *runner.Runner, store domain.Store, graph *parser.WorkflowGraph, workflowID uuid.UUID) {
	conversationID := uuid.New()
	fmt.Printf("Starting chat session: %s\n", conversationID)
	fmt.Println("Type 'exit' to quit.")

	var mgr *conversation.Manager
	if store != nil {
		var err error
		mgr, err = conversation.NewManager(ctx, store, conversationID)
		if err != nil {
			fmt.Printf("Warning: conversation history unavailable: %v\n", err)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nUser: ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return
		}

		if mgr != nil {
			if err := mgr.Append(ctx, domain.RoleUser, input); err != nil {
				fmt.Printf("Warning: failed to store message: %v\n", err)
			}
		}

		history := ""
		if mgr != nil {
			if h, err := mgr.HistoryString(ctx); err == nil {
				history = h
			}
		}

		inputs := map[string]any{
			"query":           input,
			"conversation_id": conversationID.String(),
			"memory":          history,
		}

		result, err := run.Execute(ctx, graph, workflowID, inputs)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		response := "..."
		if output, ok := result.Memory["end_node"].(map[string]any); ok {
			if printed, ok := output["printed"].(string); ok {
				response = printed
			}
		}
		fmt.Printf("Bot: %s\n", response)

		if mgr != nil {
			if err := mgr.Append(ctx, domain.RoleAssistant, response); err != nil {
				fmt.Printf("Warning: failed to store message: %v\n", err)
			}
		}
	}
}
