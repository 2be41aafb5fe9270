//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/corpora/internal/api/handlers"
	"github.com/cloo-solutions/corpora/internal/repository"
	"github.com/cloo-solutions/corpora/internal/server"
	"github.com/cloo-solutions/corpora/internal/service"
	"github.com/cloo-solutions/corpora/internal/storage"
	"github.com/cloo-solutions/corpora/internal/telemetry"
	"github.com/cloo-solutions/corpora/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv bundles the containers, server, and credentials a test needs.
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	AuthSvc      *service.AuthService
	BinaryDir    string
	ActorID      string
	AuthToken    string
	HTTPClient   *http.Client
}

// SetupE2EEnv brings up Postgres, RustFS, and an in-process API server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  testutil.NewPostgresContainer(ctx, t),
		RustFSC:    testutil.NewRustFSContainer(ctx, t),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.Pool = testutil.NewTestPool(ctx, t, env.PostgresC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        env.RustFSC.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("s3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("ensure bucket: %v", err)
	}
	env.S3Client = s3Client

	env.ServerURL, env.ServerCloser, env.AuthSvc = startServer(t, env.Pool, s3Client, freePort(t))
	return env
}

// Cleanup tears everything down in reverse order of setup.
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// Bootstrap provisions the first actor and API key. Actor creation is open,
// but key creation over HTTP requires auth, so the key is minted through the
// service layer.
func (e *E2ETestEnv) Bootstrap() {
	resp, err := e.Post("/actors", map[string]string{"name": "e2e-actor"}, "")
	if err != nil {
		e.T.Fatalf("create actor: %v", err)
	}

	var actor struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &actor); err != nil {
		e.T.Fatalf("decode actor: %v", err)
	}
	e.ActorID = actor.ID

	e.AuthToken, err = e.AuthSvc.CreateAPIKey(e.Ctx, e.ActorID, "e2e-test-key")
	if err != nil {
		e.T.Fatalf("create api key: %v", err)
	}
}

// CreateProject makes a project through the API and returns its id.
func (e *E2ETestEnv) CreateProject(name string, maxDocuments int) string {
	resp, err := e.Post("/projects", map[string]any{
		"name":          name,
		"max_documents": maxDocuments,
	}, e.AuthToken)
	if err != nil {
		e.T.Fatalf("create project: %v", err)
	}

	var project struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &project); err != nil {
		e.T.Fatalf("decode project: %v", err)
	}
	return project.ID
}

// BuildBinaries compiles corpora and corporad into a temp dir for CLI tests.
func (e *E2ETestEnv) BuildBinaries() {
	dir, err := os.MkdirTemp("", "corpora-e2e-*")
	if err != nil {
		e.T.Fatalf("temp dir: %v", err)
	}
	e.BinaryDir = dir

	for _, name := range []string{"corporad", "corpora"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(dir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("build %s: %v\n%s", name, err, out)
		}
	}
}

// RunCorpora invokes the corpora CLI with credentials pointed at the test server.
func (e *E2ETestEnv) RunCorpora(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "corpora"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"CORPORA_API_KEY="+e.AuthToken,
		"CORPORA_API_URL="+e.ServerURL,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse mirrors the server's response envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

func (e *E2ETestEnv) Post(path string, body any, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body any, authToken string) (*APIResponse, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope APIResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Error pages from outside the handler stack are not JSON.
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, raw)
		}
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, envelope.Error)
	}
	return &envelope, nil
}

// UploadObject pushes a document to object storage through a presigned URL,
// the same path the CLI takes.
func (e *E2ETestEnv) UploadObject(key string, content []byte, contentType string) {
	url, err := e.S3Client.GenerateUploadURL(e.Ctx, key, contentType)
	if err != nil {
		e.T.Fatalf("presign upload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(content))
	if err != nil {
		e.T.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		e.T.Fatalf("upload returned %d: %s", resp.StatusCode, body)
	}
}

// SHA256Sum returns the lowercase hex digest of data.
func SHA256Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// startServer wires the full admission stack against the test containers and
// serves it on the given port.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func(), *service.AuthService) {
	itemRepo := repository.NewKnowledgeItemRepository(pool)
	fingerprintRepo := repository.NewFingerprintRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	actorRepo := repository.NewActorRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	memberRepo := repository.NewProjectMemberRepository(pool)
	keyStoreRepo := repository.NewKeyStoreRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	notifier, err := service.NewNotifier(2, projectRepo, nil, nil)
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	metrics := telemetry.NewMetrics()
	guard := service.NewGuard(memberRepo, projectRepo, itemRepo)
	engine := service.NewEncryptionEngine(keyStoreRepo)

	ingestionSvc := service.NewIngestionService(service.IngestionServiceConfig{
		Guard:         guard,
		Engine:        engine,
		Embedder:      service.NewDeterministicEmbedder(128),
		Items:         itemRepo,
		Fingerprints:  fingerprintRepo,
		Projects:      projectRepo,
		Conversations: conversationRepo,
		Audit:         auditRepo,
		Tx:            txRunner,
		Notifier:      notifier,
		Fetcher:       s3Client,
		Metrics:       metrics,
		UUIDGen:       uuidGen,
	})
	knowledgeSvc := service.NewKnowledgeService(guard, itemRepo, auditRepo)
	authSvc := service.NewAuthService(actorRepo, apiKeyRepo, uuidGen)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:    authSvc,
		IngestionHandler: handlers.NewIngestionHandler(ingestionSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
		AuthHandler:      handlers.NewAuthHandler(authSvc),
		ProjectHandler:   handlers.NewProjectHandler(projectRepo, memberRepo),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	closer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		notifier.Release()
	}
	return serverURL, closer, authSvc
}

// waitForServer polls /health until the listener answers or the deadline passes.
func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %v", timeout)
}

// freePort asks the kernel for an ephemeral port and releases it immediately.
func freePort(t *testing.T) int {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
