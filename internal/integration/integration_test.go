package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"hastyquiz-service/internal/engine"
	"hastyquiz-service/internal/history"
	infrapostgres "hastyquiz-service/internal/infra/postgres"
	pgmigrations "hastyquiz-service/internal/infra/postgres/migrations"
	infraredis "hastyquiz-service/internal/infra/redis"
	"hastyquiz-service/internal/ingest"
	"hastyquiz-service/internal/prefs"
)

const sampleQuizJSON = `{
	"title": "Integration Quiz",
	"questions": [
		{
			"id": "q1",
			"text": "What is 2 + 2?",
			"options": [
				{"id": "o1", "text": "3", "isCorrect": false},
				{"id": "o2", "text": "4", "isCorrect": true}
			]
		},
		{
			"id": "q2",
			"text": "Water boils at 100C at sea level.",
			"options": [
				{"id": "o3", "text": "True", "isCorrect": true},
				{"id": "o4", "text": "False", "isCorrect": false}
			]
		}
	]
}`

func TestSessionPersistsToPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()

	applyMigrations(t, ctx, dsn)

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := infrapostgres.NewStore(pool)
	prefsStore := prefs.NewStore(ctx, store)
	historyStore := history.NewStore(ctx, store)
	eng := engine.NewWithClock(store, prefsStore, historyStore, time.Now, time.Hour)

	quiz, err := ingest.Parse(sampleQuizJSON)
	if err != nil {
		t.Fatalf("parse quiz: %v", err)
	}
	eng.LoadQuiz(ctx, quiz)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Answer both questions; option ids survive shuffling.
	eng.Answer(ctx, correctOption(t, eng))
	eng.Answer(ctx, correctOption(t, eng))

	summary, ok := eng.Summary()
	if !ok {
		t.Fatalf("expected completed session")
	}
	if summary.CorrectAnswers != 2 {
		t.Fatalf("expected 2 correct answers, got %d", summary.CorrectAnswers)
	}

	// A fresh history store over the same database sees the attempt.
	reloaded := history.NewStore(ctx, infrapostgres.NewStore(pool))
	if reloaded.Len() != 1 {
		t.Fatalf("expected 1 persisted summary, got %d", reloaded.Len())
	}
	if got := reloaded.All()[0]; got.QuizTitle != "Integration Quiz" {
		t.Fatalf("unexpected persisted summary %+v", got)
	}
}

func TestPreferencesPersistToRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	url, cleanup := startRedis(t, ctx)
	defer cleanup()

	client, err := redisClientFromURL(url)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	store := infraredis.NewStore(client)

	prefsStore := prefs.NewStore(ctx, store)
	updated := prefsStore.Update(ctx, prefs.Patch{TimePerQuestion: intPtr(45)})
	if updated.TimePerQuestion != 45 {
		t.Fatalf("expected 45, got %d", updated.TimePerQuestion)
	}

	reloaded := prefs.NewStore(ctx, infraredis.NewStore(client))
	if got := reloaded.Current().TimePerQuestion; got != 45 {
		t.Fatalf("expected persisted 45, got %d", got)
	}
}

func correctOption(t *testing.T, eng *engine.Engine) string {
	t.Helper()
	question, ok := eng.CurrentQuestion()
	if !ok {
		t.Fatalf("no active question")
	}
	for _, option := range question.Options {
		if option.Correct {
			return option.ID
		}
	}
	t.Fatalf("question %s has no correct option", question.ID)
	return ""
}

func intPtr(v int) *int { return &v }

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
