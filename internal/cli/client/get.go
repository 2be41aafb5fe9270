package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// KnowledgeItem represents an admitted knowledge item from the API.
type KnowledgeItem struct {
	ID                       string          `json:"id"`
	ProjectID                string          `json:"project_id"`
	OwnerID                  string          `json:"owner_id"`
	Title                    string          `json:"title"`
	Category                 string          `json:"category"`
	SourceType               string          `json:"source_type"`
	SourceRef                string          `json:"source_ref,omitempty"`
	SensitivityTier          string          `json:"sensitivity_tier"`
	EncryptionState          string          `json:"encryption_state"`
	ClassificationConfidence float64         `json:"classification_confidence"`
	RetentionPolicy          string          `json:"retention_policy"`
	ComplianceFlags          map[string]bool `json:"compliance_flags"`
	CreatedAt                string          `json:"created_at"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:     "get <item_id>",
		Short:   "Get a knowledge item by ID",
		Long:    "Retrieves a knowledge item's admission metadata by its ID.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(args[0], projectID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Override project ID from config")

	return cmd
}

func runGet(itemID, projectID string, outputJSON bool) error {
	effectiveProjectID, err := resolveProjectID(projectID)
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/projects/%s/knowledge/%s", effectiveProjectID, itemID))
	if err != nil {
		return fmt.Errorf("failed to get knowledge item: %w", err)
	}

	var item KnowledgeItem
	if err := json.Unmarshal(resp.Data, &item); err != nil {
		return fmt.Errorf("failed to parse knowledge item: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(item, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Title: %s\n", item.Title)
		if item.Category != "" {
			fmt.Printf("Category: %s\n", item.Category)
		}
		fmt.Printf("Source: %s", item.SourceType)
		if item.SourceRef != "" {
			fmt.Printf(" (%s)", item.SourceRef)
		}
		fmt.Println()
		fmt.Printf("Sensitivity: %s (confidence: %.2f)\n", item.SensitivityTier, item.ClassificationConfidence)
		fmt.Printf("Encryption: %s\n", item.EncryptionState)
		fmt.Printf("Retention: %s\n", item.RetentionPolicy)
		fmt.Printf("Created: %s\n", item.CreatedAt)
		fmt.Printf("ID: %s\n", item.ID)
	}

	return nil
}

// resolveProjectID prefers an explicit flag over the local project config.
func resolveProjectID(flagProjectID string) (string, error) {
	if flagProjectID != "" {
		return flagProjectID, nil
	}
	config, err := LoadConfig()
	if err != nil {
		return "", err
	}
	return config.ProjectID, nil
}
