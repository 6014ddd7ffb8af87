package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/itzcole03/A1forBolt-sub001/internal/telemetry"
)

// slowQueryThreshold is the statement duration above which completion is
// logged at warning level instead of debug.
const slowQueryThreshold = 200 * time.Millisecond

// maxStatementLength bounds the statement text attached to spans and logs
const maxStatementLength = 120

// TracedPool wraps a DatabasePool with span creation and duration logging
// for every statement. It satisfies DatabasePool itself, so repositories can
// be constructed over either the raw pool or the traced one.
type TracedPool struct {
	pool   DatabasePool
	logger *logrus.Logger
}

// NewTracedPool wraps the given pool
func NewTracedPool(pool DatabasePool, logger *logrus.Logger) *TracedPool {
	return &TracedPool{
		pool:   pool,
		logger: logger,
	}
}

// Query executes a query that returns rows
func (p *TracedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := p.startSpan(ctx, "db.query", sql)
	defer span.End()

	start := time.Now()
	rows, err := p.pool.Query(ctx, sql, args...)
	p.finish(span, "query", sql, time.Since(start), err)
	return rows, err
}

// QueryRow executes a query expected to return at most one row. The
// statement itself runs when the row is scanned, so the recorded duration
// covers dispatch only.
func (p *TracedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := p.startSpan(ctx, "db.query_row", sql)
	defer span.End()

	start := time.Now()
	row := p.pool.QueryRow(ctx, sql, args...)
	p.finish(span, "query_row", sql, time.Since(start), nil)
	return row
}

// Exec executes a statement without returning rows
func (p *TracedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := p.startSpan(ctx, "db.exec", sql)
	defer span.End()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	p.finish(span, "exec", sql, time.Since(start), err)
	return tag, err
}

func (p *TracedPool) startSpan(ctx context.Context, name, sql string) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer("database").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", summarizeStatement(sql)),
	)
	return ctx, span
}

func (p *TracedPool) finish(span trace.Span, operation, sql string, duration time.Duration, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.WithError(err).WithFields(logrus.Fields{
			"operation": operation,
			"statement": summarizeStatement(sql),
			"duration":  duration,
		}).Error("Database statement failed")
		return
	}

	if duration >= slowQueryThreshold {
		p.logger.WithFields(logrus.Fields{
			"operation": operation,
			"statement": summarizeStatement(sql),
			"duration":  duration,
		}).Warn("Slow database statement")
		return
	}

	p.logger.WithFields(logrus.Fields{
		"operation": operation,
		"duration":  duration,
	}).Debug("Database statement completed")
}

// summarizeStatement collapses a statement onto one trimmed line so multiline
// query literals stay readable in spans and log fields.
func summarizeStatement(sql string) string {
	summary := strings.Join(strings.Fields(sql), " ")
	if len(summary) > maxStatementLength {
		summary = summary[:maxStatementLength]
	}
	return summary
}
