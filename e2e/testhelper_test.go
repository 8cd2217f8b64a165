package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/musicgen/internal/auth"
	"github.com/makeasinger/musicgen/internal/client"
	"github.com/makeasinger/musicgen/internal/config"
	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/handler"
	"github.com/makeasinger/musicgen/internal/logging"
	"github.com/makeasinger/musicgen/internal/middleware"
	"github.com/makeasinger/musicgen/internal/service"
	"github.com/makeasinger/musicgen/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// upstream is a scripted fake of the remote generation API.
type upstream struct {
	srv *httptest.Server

	mu       sync.Mutex
	created  []map[string]interface{}
	createFn func(path string) (code int, msg string)
	// records are served in order; the last one repeats.
	records []string
	polls   int
}

func newUpstream(t *testing.T, records ...string) *upstream {
	t.Helper()
	u := &upstream{records: records}
	u.srv = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if strings.HasSuffix(r.URL.Path, "/record-info") {
		if len(u.records) == 0 {
			w.Write([]byte(`{"code":200,"msg":"success","data":{"status":"PENDING"}}`))
			return
		}
		rec := u.records[min(u.polls, len(u.records)-1)]
		u.polls++
		w.Write([]byte(`{"code":200,"msg":"success","data":` + rec + `}`))
		return
	}

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	u.created = append(u.created, body)
	if u.createFn != nil {
		if code, msg := u.createFn(r.URL.Path); code != 200 {
			json.NewEncoder(w).Encode(map[string]interface{}{"code": code, "msg": msg})
			return
		}
	}
	w.Write([]byte(`{"code":200,"msg":"success","data":{"taskId":"task-1"}}`))
}

func (u *upstream) lastCreated() map[string]interface{} {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.created) == 0 {
		return nil
	}
	return u.created[len(u.created)-1]
}

// testApp holds all components needed for testing
type testApp struct {
	app      *fiber.App
	upstream *upstream
	tasks    *store.Memory
	suno     *client.SunoClient
	// jobs and redis are nil when Redis is not running.
	jobs  *service.JobService
	redis *redis.Client
}

// setupApp creates a Fiber app mounted like main.go against a fake
// upstream. Job routes are mounted only when Redis is reachable.
func setupApp(t *testing.T, records ...string) *testApp {
	t.Helper()

	up := newUpstream(t, records...)
	logger := logging.Discard()
	validate := feature.NewValidator()

	sunoClient := client.NewSunoClient(&config.SunoConfig{
		APIKey:      "upstream-key",
		BaseURL:     up.srv.URL,
		CallbackURL: "https://example.com/callback",
	}, logger)
	tasks := store.NewMemory()

	verifier := auth.Chain{auth.NewHMACVerifier(testJWTSecret)}
	ta := &testApp{upstream: up, tasks: tasks, suno: sunoClient}

	routes := &handler.Routes{
		Authenticate: middleware.NewAuthMiddleware(verifier).Authenticate(),
		Limits:       config.RateLimitConfig{CreatePerMin: 10000, JobsPerHour: 10000},
		Auth:         handler.NewAuthHandler(verifier),
		Suno:         handler.NewSunoHandler(sunoClient, validate),
		Tasks:        handler.NewTaskHandler(tasks),
	}

	if redisClient := testRedis(t); redisClient != nil {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: "localhost:6379", DB: 15})
		t.Cleanup(func() { asynqClient.Close() })

		ta.redis = redisClient
		ta.jobs = service.NewJobService(redisClient, asynqClient, validate)
		routes.RateLimiter = middleware.NewRateLimiter(redisClient, logger)
		routes.Jobs = handler.NewJobHandler(ta.jobs)
	}

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"suno":  true,
				"redis": ta.redis != nil,
				"r2":    false,
				"auth":  true,
			},
		})
	})
	routes.Mount(app)

	ta.app = app
	return ta
}

// testRedis returns a client on DB 15, or nil when Redis is not running.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func requireJobs(t *testing.T, ta *testApp) {
	t.Helper()
	if ta.jobs == nil {
		t.Skip("redis not available on localhost:6379")
	}
}

// serve exposes the app on a real listener and returns its base URL.
func (ta *testApp) serve(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go ta.app.Listener(ln)
	t.Cleanup(func() { ta.app.Shutdown() })
	return "http://" + ln.Addr().String()
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	token, err := auth.NewHMACVerifier(testJWTSecret).Issue("test-user-123", "test@example.com", time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
