package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/wmcube/settlesplit/internal/services"
)

var (
	statementInstance *services.StatementFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("SplitStatement", splitStatement)
}

// main is required by the Go Functions Framework.
func main() {}

// splitStatement is the Cloud Function entry point for statement uploads.
func splitStatement(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		statementInstance, initErr = services.NewStatementFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return statementInstance.Process(ctx, gcsEvent)
}
