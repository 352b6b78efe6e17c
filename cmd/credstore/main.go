package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/avolokh/credstore/internal/app"
	"github.com/avolokh/credstore/internal/domain/entity"
	"github.com/avolokh/credstore/internal/domain/repository"
)

func main() {
	configPath := os.Getenv("CREDSTORE_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	ctx := context.Background()

	application, err := app.New(ctx, configPath)
	if err != nil {
		slog.Error("failed to start credstore", "error", err)
		os.Exit(1)
	}
	defer application.Shutdown()

	logger := application.Logger()
	logger.Info("credstore started",
		"storage_type", application.Config().Storage.Type,
		"schema_policy", application.Config().Storage.SchemaPolicy,
	)

	if err := runScenario(ctx, application); err != nil {
		logger.Error("scenario failed", "error", err)
		application.Shutdown()
		os.Exit(1)
	}

	logger.Info("scenario finished")
}

// runScenario exercises the registry end to end: aggregate save with
// cascade, lookups, pagination, predicate queries and cascading delete.
func runScenario(ctx context.Context, application *app.Application) error {
	logger := application.Logger()
	students := application.Students
	certs := application.Certificates

	// Save an aggregate: the certificate rides along in the same unit of
	// work.
	alice := entity.NewStudent("Alice Johnson", "XYZ University", "555-0100")
	alice.AttachCertificate(entity.NewCertificate("CERT001", "https://example.com/cert001"))
	if err := students.Save(ctx, alice); err != nil {
		return fmt.Errorf("saving student: %w", err)
	}
	logger.Info("saved student", "id", alice.ID, "name", alice.Name)

	// Fetch with dependents.
	loaded, err := students.GetByID(ctx, alice.ID)
	if err != nil {
		return fmt.Errorf("loading student: %w", err)
	}
	logger.Info("loaded student", "id", loaded.ID, "certificates", len(loaded.Certificates))

	owned, err := certs.FindByStudent(ctx, alice.ID)
	if err != nil {
		return fmt.Errorf("loading certificates: %w", err)
	}
	for _, c := range owned {
		logger.Info("certificate", "id", c.ID, "code", c.Code, "link", c.Link)
	}

	// A few more students to page through.
	for _, name := range []string{"Bob Smith", "Carol White", "Dan Brown"} {
		if err := students.Save(ctx, entity.NewStudent(name, "XYZ University", "")); err != nil {
			return fmt.Errorf("saving student %s: %w", name, err)
		}
	}

	const pageSize = 2
	for page := 0; ; page++ {
		batch, err := students.GetPage(ctx, page, pageSize)
		if err != nil {
			return fmt.Errorf("paging students: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, s := range batch {
			logger.Info("page entry", "page", page, "id", s.ID, "name", s.Name)
		}
	}

	// Named lookup and its predicate equivalent.
	byName, err := students.FindByName(ctx, "Alice Johnson")
	if err != nil {
		return fmt.Errorf("finding by name: %w", err)
	}
	logger.Info("found by name", "id", byName.ID)

	byCollege, err := students.FindBy(ctx, repository.Eq(repository.FieldCollege, "XYZ University"))
	if err != nil {
		return fmt.Errorf("finding by college: %w", err)
	}
	logger.Info("found by college", "count", len(byCollege))

	// Cascading delete, then prove nothing of the aggregate survives.
	found, err := students.Delete(ctx, alice.ID)
	if err != nil {
		return fmt.Errorf("deleting student: %w", err)
	}
	logger.Info("deleted student", "id", alice.ID, "found", found)

	gone, err := students.GetByID(ctx, alice.ID)
	if err != nil {
		return fmt.Errorf("re-loading student: %w", err)
	}
	if gone != nil {
		return fmt.Errorf("student %d still present after delete", alice.ID)
	}

	orphans, err := certs.FindByStudent(ctx, alice.ID)
	if err != nil {
		return fmt.Errorf("checking orphans: %w", err)
	}
	if len(orphans) != 0 {
		return fmt.Errorf("%d certificates survived the cascade", len(orphans))
	}

	return nil
}
