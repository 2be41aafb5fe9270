package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// AuditRecord represents an audit log entry from the API.
type AuditRecord struct {
	ID           string                 `json:"id"`
	ProjectID    string                 `json:"project_id"`
	ActorID      string                 `json:"actor_id,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

// AuditListResponse represents the audit list API response.
type AuditListResponse struct {
	Records    []AuditRecord `json:"records"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// AuditCmd creates the audit command.
func AuditCmd() *cobra.Command {
	var (
		projectID string
		limit     int
		cursor    string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List the project audit trail",
		Long:  "Lists ingestion and erasure audit records for the project, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAudit(projectID, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Override project ID from config")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runAudit(projectID string, limit int, cursor string, outputJSON bool) error {
	effectiveProjectID, err := resolveProjectID(projectID)
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := fmt.Sprintf("/projects/%s/audit", effectiveProjectID)
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("audit list failed: %w", err)
	}

	var auditResp AuditListResponse
	if err := json.Unmarshal(resp.Data, &auditResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(auditResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(auditResp.Records) == 0 {
		fmt.Println("No audit records found.")
		return nil
	}

	for _, record := range auditResp.Records {
		fmt.Printf("%s  %-20s actor=%s resource=%s/%s\n",
			record.Timestamp, record.Action, record.ActorID, record.ResourceType, record.ResourceID)
	}

	if auditResp.HasMore && auditResp.NextCursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", auditResp.NextCursor)
	}

	return nil
}
