package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/corpora/internal/repository"
	"github.com/cloo-solutions/corpora/internal/service"
)

// APIKeyCmd creates the apikey command group: create, list, revoke.
func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, and revoke API keys",
	}
	cmd.AddCommand(apiKeyCreateCmd(), apiKeyListCmd(), apiKeyRevokeCmd())
	return cmd
}

func apiKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for an actor",
		RunE:  runAPIKeyCreate,
	}
	cmd.Flags().StringP("actor", "a", "", "Actor ID or name (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	actorRef, _ := cmd.Flags().GetString("actor")
	name, _ := cmd.Flags().GetString("name")
	format, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	actorRepo := repository.NewActorRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	authSvc := service.NewAuthService(actorRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})

	actorID, err := resolveActorID(ctx, actorRepo, actorRef)
	if err != nil {
		return err
	}

	token, err := authSvc.CreateAPIKey(ctx, actorID, name)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	// The service only returns the plaintext token; look the row back up
	// for its id.
	keys, err := authSvc.ListAPIKeys(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to retrieve created key: %w", err)
	}
	var keyID string
	if len(keys) > 0 {
		keyID = keys[len(keys)-1].ID
	}

	if format == "json" {
		printJSON(map[string]any{
			"id":    keyID,
			"name":  name,
			"actor": actorID,
			"token": token,
		})
		return nil
	}

	fmt.Printf("API key created for actor %s\n", actorID)
	fmt.Printf("Key ID: %s\n", keyID)
	fmt.Printf("Key Name: %s\n", name)
	fmt.Printf("Token: %s\n", token)
	fmt.Println("\n⚠️  Save this token now. You won't be able to see it again!")
	return nil
}

func apiKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for an actor",
		Long:  "List all API keys issued to a specific actor",
		RunE:  runAPIKeyList,
	}
	cmd.Flags().StringP("actor", "a", "", "Actor ID or name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("actor")
	return cmd
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	actorRef, _ := cmd.Flags().GetString("actor")
	format, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	actorRepo := repository.NewActorRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	actorID, err := resolveActorID(ctx, actorRepo, actorRef)
	if err != nil {
		return err
	}

	keys, err := apiKeyRepo.GetByActorID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to list API keys: %w", err)
	}

	if format == "json" {
		rows := make([]map[string]any, len(keys))
		for i, key := range keys {
			rows[i] = map[string]any{
				"id":         key.ID,
				"name":       key.Name,
				"actor_id":   key.ActorID,
				"created_at": key.CreatedAt,
				"revoked_at": key.RevokedAt,
				"revoked":    key.IsRevoked(),
			}
		}
		printJSON(rows)
		return nil
	}

	if len(keys) == 0 {
		fmt.Printf("No API keys found for actor %s\n", actorID)
		return nil
	}
	fmt.Printf("API keys for actor %s:\n", actorID)
	for _, key := range keys {
		status := "active"
		if key.IsRevoked() {
			status = "revoked"
		}
		fmt.Printf("  %s: %s (%s, created: %s)\n", key.ID, key.Name, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func apiKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runAPIKeyRevoke,
	}
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	return cmd
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	keyID := args[0]
	format, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewAPIKeyRepository(pool).Revoke(ctx, keyID); err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	if format == "json" {
		printJSON(map[string]any{
			"id":      keyID,
			"revoked": true,
			"message": "API key revoked successfully",
		})
		return nil
	}

	fmt.Printf("API key %s revoked successfully\n", keyID)
	return nil
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
