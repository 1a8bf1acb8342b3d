package stores_test

import (
	"context"
	"fmt"
	"log"

	"github.com/agentflow/agentflow/pkg/stores"
)

// Example demonstrates the full lifecycle of a persisted workflow run.
func Example() {
	store, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	run := &stores.Run{
		ID:       "run-001",
		Workflow: "research",
		Status:   stores.RunStatusRunning,
		Input:    `{"query":"climate data"}`,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		log.Fatal(err)
	}

	_, err = store.AppendEvent(ctx, &stores.Event{
		RunID:       run.ID,
		Instruction: "gather",
		Kind:        "base",
		Level:       stores.EventLevelInfo,
		Message:     "instruction completed",
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := store.CompleteRun(ctx, run.ID, stores.RunStatusCompleted, `{"documents":3}`, ""); err != nil {
		log.Fatal(err)
	}

	final, err := store.GetRun(ctx, run.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(final.Status)

	events, err := store.GetEvents(ctx, run.ID, "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(len(events))

	// Output:
	// completed
	// 1
}
