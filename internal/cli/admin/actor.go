package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/corpora/internal/config"
	"github.com/cloo-solutions/corpora/internal/database"
	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/repository"
	"github.com/cloo-solutions/corpora/internal/service"
)

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, nil
}

func resolveActorID(ctx context.Context, actorRepo *repository.ActorRepository, actorRef string) (string, error) {
	if _, err := uuid.Parse(actorRef); err == nil {
		actor, err := actorRepo.GetByID(ctx, actorRef)
		if err != nil {
			return "", fmt.Errorf("actor not found: %s", actorRef)
		}
		return actor.ID, nil
	}

	actor, err := actorRepo.GetByName(ctx, actorRef)
	if err != nil {
		if errors.Is(err, domain.ErrActorNotFound) {
			return "", fmt.Errorf("actor not found: %s", actorRef)
		}
		return "", err
	}
	return actor.ID, nil
}

func ActorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Manage actors",
		Long:  "Create and list actor identities",
	}

	cmd.AddCommand(actorCreateCmd(), actorListCmd())
	return cmd
}

func actorCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new actor",
		Long:  "Create a new actor identity that API keys can be issued for",
		Args:  cobra.ExactArgs(1),
		RunE:  runActorCreate,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runActorCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	actorRepo := repository.NewActorRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(actorRepo, apiKeyRepo, uuidGen)

	actor, err := authSvc.CreateActor(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create actor: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]any{
			"id":         actor.ID,
			"name":       actor.Name,
			"created_at": actor.CreatedAt,
		})
		return nil
	}

	fmt.Printf("Actor created: %s (id: %s)\n", actor.Name, actor.ID)
	return nil
}

func actorListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List actors",
		Long:  "List all actor identities",
		RunE:  runActorList,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runActorList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	actorRepo := repository.NewActorRepository(pool)
	actors, err := actorRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list actors: %w", err)
	}

	if outputFormat == "json" {
		rows := make([]map[string]any, len(actors))
		for i, actor := range actors {
			rows[i] = map[string]any{
				"id":         actor.ID,
				"name":       actor.Name,
				"created_at": actor.CreatedAt,
			}
		}
		printJSON(rows)
		return nil
	}

	if len(actors) == 0 {
		fmt.Println("No actors found")
		return nil
	}
	for _, actor := range actors {
		fmt.Printf("  %s: %s (created: %s)\n", actor.ID, actor.Name, actor.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
