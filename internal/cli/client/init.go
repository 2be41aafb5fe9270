package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	corporaDir = ".corpora"
	configFile = "config.yaml"
	envFile    = ".env"
)

// Config is the per-directory project binding in .corpora/config.yaml.
type Config struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
}

func InitCmd() *cobra.Command {
	var projectName, apiKey, apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a corpora project",
		Long:  "Creates the .corpora/ directory, config.yaml, and .env with API key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(projectName, apiKey, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&projectName, "project", "", "Project name (auto-generated from directory name if not provided)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(projectName, apiKey, apiURL string, outputJSON bool) error {
	if _, err := os.Stat(corporaDir); err == nil {
		return fmt.Errorf(".corpora directory already exists")
	}

	_ = godotenv.Load()
	if apiKey == "" {
		apiKey = os.Getenv(envAPIKey)
	}
	if apiKey == "" {
		fmt.Print("Enter API key: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		if apiKey = strings.TrimSpace(line); apiKey == "" {
			return fmt.Errorf("API key is required")
		}
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	if projectName == "" {
		cwd, _ := os.Getwd()
		projectName = filepath.Base(cwd)
	}

	env := fmt.Sprintf("CORPORA_API_KEY=%s\nCORPORA_API_URL=%s\n", apiKey, apiURL)
	if err := os.WriteFile(envFile, []byte(env), 0600); err != nil {
		return fmt.Errorf("failed to create .env: %w", err)
	}

	// Roll back the .env on any failure before the project exists, so a
	// re-run starts clean.
	project, err := createProject(apiKey, apiURL, projectName)
	if err != nil {
		os.Remove(envFile)
		return err
	}

	if err := os.MkdirAll(corporaDir, 0755); err != nil {
		return fmt.Errorf("failed to create .corpora directory: %w", err)
	}

	configPath := filepath.Join(corporaDir, configFile)
	cfg := fmt.Sprintf("project_id: %s\nproject_name: %s\n", project.ID, project.Name)
	if err := os.WriteFile(configPath, []byte(cfg), 0644); err != nil {
		return fmt.Errorf("failed to create config.yaml: %w", err)
	}

	if outputJSON {
		out, _ := json.MarshalIndent(map[string]any{
			"success":      true,
			"project_id":   project.ID,
			"project_name": project.Name,
			"config":       configPath,
			"env":          envFile,
		}, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Initialized corpora project '%s'\n", project.Name)
	fmt.Printf("Project ID: %s\n", project.ID)
	fmt.Printf("Config saved to %s\n", configPath)
	return nil
}

type projectInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func createProject(apiKey, apiURL, name string) (*projectInfo, error) {
	api, err := NewAPIClientWithConfig(apiKey, apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	resp, err := api.Post("/projects", map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	var project projectInfo
	if err := json.Unmarshal(resp.Data, &project); err != nil {
		return nil, fmt.Errorf("failed to parse project response: %w", err)
	}
	return &project, nil
}

// LoadConfig reads .corpora/config.yaml from the working directory.
func LoadConfig() (*Config, error) {
	data, err := os.ReadFile(filepath.Join(corporaDir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("not a corpora project (run 'corpora init' first)")
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// The file only carries two scalar keys; no YAML library needed.
	var cfg Config
	for _, line := range strings.Split(string(data), "\n") {
		if id, ok := strings.CutPrefix(line, "project_id: "); ok {
			cfg.ProjectID = strings.TrimSpace(id)
			break
		}
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("invalid config: project_id not found")
	}
	return &cfg, nil
}
