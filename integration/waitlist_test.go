package integration

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akeren/go-waitlist/config"
	"github.com/akeren/go-waitlist/config/router"
	"github.com/akeren/go-waitlist/domain"
	"github.com/akeren/go-waitlist/internal/log"
	"github.com/akeren/go-waitlist/pkg/circuitbreaker"
	"github.com/akeren/go-waitlist/pkg/migrations"
	"github.com/akeren/go-waitlist/pkg/notify"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type signup struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	CreatorType string `json:"creatorType"`
	CreatedAt   string `json:"createdAt"`
}

type WaitlistAPITestSuite struct {
	suite.Suite
	dbPath        string
	db            *gorm.DB
	server        *httptest.Server
	mailchimp     *httptest.Server
	mailchimpHits atomic.Int32
	logger        *log.Logger
	appConfig     *config.ApplicationConfig
}

func (s *WaitlistAPITestSuite) SetupSuite() {
	s.T().Setenv("CORS_ALLOWED_ORIGIN", "")
	s.T().Setenv("METRICS_ENABLED", "true")
	s.logger = log.NewLoggerWithJSONOutput()
	s.dbPath = filepath.Join(s.T().TempDir(), "waitlist.db")

	// The migrator closes the connection it is given, so schema setup gets its own.
	migrationDB, err := gorm.Open(sqlite.Open(s.dbPath), &gorm.Config{})
	s.Require().NoError(err)
	sqlDB, err := migrationDB.DB()
	s.Require().NoError(err)
	s.Require().NoError(migrations.Up(context.Background(), sqlDB, migrations.Config{
		Dir:     "../migrations",
		Dialect: migrations.DialectSQLite,
		Logger:  s.logger,
	}))

	s.db, err = config.NewSQLiteDatabase(s.logger, s.dbPath)
	s.Require().NoError(err)

	s.mailchimp = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mailchimpHits.Add(1)
		http.Error(w, `{"title":"Internal Server Error"}`, http.StatusInternalServerError)
	}))

	mailchimp, err := notify.NewMailchimpNotifier(notify.MailchimpConfig{
		APIKey:       "test-us1",
		ServerPrefix: "us1",
		ListID:       "list",
		BaseURL:      s.mailchimp.URL,
	})
	s.Require().NoError(err)

	routerService := router.CreateRouterService(s.logger, nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    10 * time.Second,
	})

	s.appConfig = &config.ApplicationConfig{
		DB:            s.db,
		StorageDriver: config.StorageDriverSQLite,
		RouterService: routerService,
		Logger:        s.logger,
		Notifier: notify.NewDispatcher(notify.DispatcherConfig{
			Timeout:    2 * time.Second,
			// Keep the circuit closed so every signup reaches the stub.
			Breaker:    &circuitbreaker.Config{FailureThreshold: 1000, RecoveryTimeout: time.Minute},
			Registerer: routerService.MetricsRegisterer(),
			Logger:     s.logger,
		}, mailchimp),
		Config: config.NewAppConfig(),
	}

	domain.SetupCoreDomain(s.appConfig)
	s.server = httptest.NewServer(routerService.GetEngine())
}

func (s *WaitlistAPITestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.mailchimp != nil {
		s.mailchimp.Close()
	}
	config.CloseDatabase(s.db, s.logger)
}

func (s *WaitlistAPITestSuite) SetupTest() {
	s.Require().NoError(s.db.Exec("DELETE FROM waitlist_signups").Error)
}

func (s *WaitlistAPITestSuite) do(method, path, body string) (*http.Response, []byte) {
	req, err := http.NewRequest(method, s.server.URL+path, strings.NewReader(body))
	s.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, raw
}

func (s *WaitlistAPITestSuite) decode(raw []byte) apiResponse {
	var out apiResponse
	s.Require().NoError(json.Unmarshal(raw, &out))
	return out
}

func (s *WaitlistAPITestSuite) TestHealth() {
	resp, raw := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, resp.StatusCode)

	var status map[string]any
	s.Require().NoError(json.Unmarshal(s.decode(raw).Data, &status))
	s.Equal("ok", status["status"])
	s.Equal("sqlite", status["storage_driver"])
	s.Equal("up", status["database"])
}

func (s *WaitlistAPITestSuite) TestSignupSurvivesNotifierOutage() {
	before := s.mailchimpHits.Load()

	resp, raw := s.do(http.MethodPost, "/api/waitlist",
		`{"email":"  Ada@Example.com ","name":"Ada","creatorType":"podcaster"}`)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(raw))

	var created signup
	s.Require().NoError(json.Unmarshal(s.decode(raw).Data, &created))
	s.NotZero(created.ID)
	s.Equal("ada@example.com", created.Email)
	s.Equal("podcaster", created.CreatorType)
	_, err := time.Parse("2006-01-02T15:04:05.000Z", created.CreatedAt)
	s.NoError(err)

	s.Equal(before+1, s.mailchimpHits.Load())
}

func (s *WaitlistAPITestSuite) TestDuplicateEmailIsRejected() {
	body := `{"email":"dup@example.com","name":"First","creatorType":"writer"}`
	resp, _ := s.do(http.MethodPost, "/api/waitlist", body)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, raw := s.do(http.MethodPost, "/api/waitlist", `{"email":"DUP@example.com","name":"Second","creatorType":"writer"}`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("This email is already on the waitlist", s.decode(raw).Message)

	var count int64
	s.Require().NoError(s.db.Table("waitlist_signups").Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *WaitlistAPITestSuite) TestMissingFieldsReturnValidationDetails() {
	resp, raw := s.do(http.MethodPost, "/api/waitlist", `{"email":"not-an-email"}`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	out := s.decode(raw)
	s.Equal("Invalid request payload", out.Message)

	var details []struct {
		Field string `json:"field"`
	}
	s.Require().NoError(json.Unmarshal(out.Data, &details))

	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.Field)
	}
	s.ElementsMatch([]string{"email", "name", "creatorType"}, fields)
}

func (s *WaitlistAPITestSuite) TestExportListsSignupsInJoinOrder() {
	for _, email := range []string{"first@example.com", "second@example.com", "third@example.com"} {
		resp, _ := s.do(http.MethodPost, "/api/waitlist", `{"email":"`+email+`","name":"=cmd","creatorType":"artist"}`)
		s.Require().Equal(http.StatusCreated, resp.StatusCode)
	}

	resp, raw := s.do(http.MethodGet, "/api/waitlist/export", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.True(strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
	s.Contains(resp.Header.Get("Content-Disposition"), `filename="waitlist-emails.csv"`)

	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(records, 4)
	s.Equal([]string{"Email", "Name", "Creator Type", "Joined Date"}, records[0])
	s.Equal("first@example.com", records[1][0])
	s.Equal("second@example.com", records[2][0])
	s.Equal("third@example.com", records[3][0])
	s.Equal("'=cmd", records[1][1])
}

func (s *WaitlistAPITestSuite) TestPreflightAndMethodNotAllowed() {
	resp, _ := s.do(http.MethodOptions, "/api/waitlist", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = s.do(http.MethodGet, "/api/waitlist", "")
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/api/waitlist/export", "")
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

func (s *WaitlistAPITestSuite) TestMetricsExposeSignupOutcomes() {
	resp, _ := s.do(http.MethodPost, "/api/waitlist", `{"email":"metrics@example.com","name":"M","creatorType":"dev"}`)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, raw := s.do(http.MethodGet, "/metrics", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(raw), `waitlist_signups_total{outcome="created"}`)
	s.Contains(string(raw), "notifications_total")
}

func TestWaitlistAPISuite(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration tests. Set RUN_INTEGRATION_TESTS=true to run them")
	}
	suite.Run(t, new(WaitlistAPITestSuite))
}
