// Package testinternals starts the dependencies integration tests run against.
package testinternals

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workouttracker/internal/db"
)

// DBName is the database the tests run against.
const DBName = "workouts_test"

// Postgres is a migrated database for integration tests. When POSTGRES_HOST is set
// the existing server is used, otherwise a container is started with dockertest.
type Postgres struct {
	Pool *pgxpool.Pool
	Host string
	Port string

	dockerPool *dockertest.Pool
	resource   *dockertest.Resource
}

func NewPostgres(ctx context.Context) (*Postgres, error) {
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		pg := &Postgres{Host: host, Port: port}
		if err := pg.connect(ctx, nil); err != nil {
			return nil, err
		}
		return pg, nil
	}

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("create dockertest pool: %w", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("ping docker: %w", err)
	}
	dockerPool.MaxWait = 60 * time.Second

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=" + DBName,
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, fmt.Errorf("dockerpool run postgres: %w", err)
	}
	if err := resource.Expire(300); err != nil {
		log.Warnf("set postgres container expiry: %s", err)
	}

	pg := &Postgres{
		Host:       "localhost",
		Port:       resource.GetPort("5432/tcp"),
		dockerPool: dockerPool,
		resource:   resource,
	}
	if err := pg.connect(ctx, dockerPool.Retry); err != nil {
		pg.Close()
		return nil, err
	}

	return pg, nil
}

func (pg *Postgres) connect(ctx context.Context, retry func(func() error) error) error {
	pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: pg.Host,
		DBPort: pg.Port,
		DBName: DBName,
	})
	if err != nil {
		return err
	}
	pg.Pool = pool

	ping := func() error { return pool.Ping(ctx) }
	if retry != nil {
		err = retry(ping)
	} else {
		err = ping()
	}
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}

	return db.Migrate(ctx, pool)
}

// Truncate empties every table and resets the id sequences.
func (pg *Postgres) Truncate(ctx context.Context) error {
	_, err := pg.Pool.Exec(ctx, fmt.Sprintf(
		"TRUNCATE %s RESTART IDENTITY CASCADE", strings.Join(db.Tables, ", "),
	))
	return err
}

func (pg *Postgres) Close() {
	if pg.Pool != nil {
		pg.Pool.Close()
	}
	if pg.resource != nil {
		if err := pg.dockerPool.Purge(pg.resource); err != nil {
			log.Errorf("postgres teardown: %s", err)
		}
	}
}
