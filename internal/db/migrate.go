package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
)

//go:embed schema.sql
var schemaSQL string

// Tables lists the tables owned by this service, in creation order.
var Tables = []string{
	"exercises",
	"workout_plans",
	"workout_plan_exercises",
	"workout_logs",
	"workout_sets",
}

// Schema returns the DDL applied by Migrate.
func Schema() string {
	return schemaSQL
}

// Migrate creates missing tables and indexes. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "db.migrate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	log.Debugf("db schema applied (%d tables)", len(Tables))
	return nil
}
