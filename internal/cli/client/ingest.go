package client

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

// IngestResult represents the admission result returned by the API.
type IngestResult struct {
	ID          string                 `json:"id"`
	ProjectID   string                 `json:"project_id"`
	ActorID     string                 `json:"actor_id"`
	ContentHash string                 `json:"content_hash"`
	EmbeddingID string                 `json:"embedding_id"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   string                 `json:"created_at"`
}

type ingestOptions struct {
	sensitivity string
	encrypt     bool
	classify    bool
	retention   string
}

func (o ingestOptions) toRequest() map[string]interface{} {
	return map[string]interface{}{
		"sensitivity_level": o.sensitivity,
		"encrypt_content":   o.encrypt,
		"classify_content":  o.classify,
		"retention_policy":  o.retention,
	}
}

func addIngestFlags(cmd *cobra.Command, opts *ingestOptions) {
	cmd.Flags().StringVar(&opts.sensitivity, "sensitivity", "", "Explicit sensitivity tier (standard, confidential, restricted)")
	cmd.Flags().BoolVar(&opts.encrypt, "encrypt", false, "Force encryption at rest")
	cmd.Flags().BoolVar(&opts.classify, "classify", false, "Attach classifier confidence to metadata")
	cmd.Flags().StringVar(&opts.retention, "retention", "", "Retention policy (standard, extended, indefinite)")
}

// IngestCmd creates the ingest parent command.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest content into the project corpus",
		Long:  "Submit text, files or conversations for admission into the knowledge corpus.",
	}

	cmd.AddCommand(IngestTextCmd())
	cmd.AddCommand(IngestFileCmd())
	cmd.AddCommand(IngestConversationCmd())

	return cmd
}

// IngestTextCmd creates the ingest text command.
func IngestTextCmd() *cobra.Command {
	var (
		projectID string
		title     string
		category  string
		sourceRef string
		opts      ingestOptions
	)

	cmd := &cobra.Command{
		Use:   "text <content>",
		Short: "Ingest inline text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngestText(args[0], projectID, title, category, sourceRef, opts, outputJSON)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Override project ID from config")
	cmd.Flags().StringVar(&title, "title", "", "Item title")
	cmd.Flags().StringVar(&category, "category", "", "Item category")
	cmd.Flags().StringVar(&sourceRef, "source-ref", "", "External source reference")
	addIngestFlags(cmd, &opts)

	return cmd
}

func runIngestText(content, projectID, title, category, sourceRef string, opts ingestOptions, outputJSON bool) error {
	effectiveProjectID, err := resolveProjectID(projectID)
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := map[string]interface{}{
		"content":    content,
		"title":      title,
		"category":   category,
		"source_ref": sourceRef,
		"options":    opts.toRequest(),
	}

	resp, err := api.Post(fmt.Sprintf("/projects/%s/ingest/text", effectiveProjectID), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	return printIngestResult(resp.Data, outputJSON)
}

// IngestFileCmd creates the ingest file command.
func IngestFileCmd() *cobra.Command {
	var (
		projectID string
		opts      ingestOptions
	)

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Ingest a local file",
		Long:  "Reads a local text file and submits it for admission. Binary files are rejected.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngestFile(args[0], projectID, opts, outputJSON)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Override project ID from config")
	addIngestFlags(cmd, &opts)

	return cmd
}

func runIngestFile(path, projectID string, opts ingestOptions, outputJSON bool) error {
	effectiveProjectID, err := resolveProjectID(projectID)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("file %s is not valid UTF-8 text", path)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "text/plain"
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := map[string]interface{}{
		"name":         filepath.Base(path),
		"content_type": contentType,
		"content":      string(data),
		"size":         len(data),
		"options":      opts.toRequest(),
	}

	resp, err := api.Post(fmt.Sprintf("/projects/%s/ingest/document", effectiveProjectID), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	return printIngestResult(resp.Data, outputJSON)
}

// IngestConversationCmd creates the ingest conversation command.
func IngestConversationCmd() *cobra.Command {
	var (
		projectID string
		opts      ingestOptions
	)

	cmd := &cobra.Command{
		Use:   "conversation <conversation_id>",
		Short: "Ingest a stored conversation",
		Long:  "Flattens a stored conversation transcript and submits it for admission.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngestConversation(args[0], projectID, opts, outputJSON)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Override project ID from config")
	addIngestFlags(cmd, &opts)

	return cmd
}

func runIngestConversation(conversationID, projectID string, opts ingestOptions, outputJSON bool) error {
	effectiveProjectID, err := resolveProjectID(projectID)
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := map[string]interface{}{
		"conversation_id": conversationID,
		"options":         opts.toRequest(),
	}

	resp, err := api.Post(fmt.Sprintf("/projects/%s/ingest/conversation", effectiveProjectID), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	return printIngestResult(resp.Data, outputJSON)
}

func printIngestResult(data json.RawMessage, outputJSON bool) error {
	var result IngestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Admitted: %s\n", result.ID)
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Content hash: %s\n", result.ContentHash)
	if tier, ok := result.Metadata["sensitivity_tier"]; ok {
		fmt.Printf("Sensitivity: %v\n", tier)
	}
	return nil
}
