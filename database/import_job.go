/*
Copyright 2025 Ondo Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/withondo/ondo/internal/apierror"
	"github.com/withondo/ondo/model"
)

// RecordImportJob inserts a new upload job record
func (d Datasource) RecordImportJob(ctx context.Context, job *model.ImportJob) error {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Saving import job to db")
	defer span.End()

	summary, err := json.Marshal(job.Summary)
	if err != nil {
		return err
	}
	_, err = d.Conn.ExecContext(ctx,
		`INSERT INTO import_jobs(job_id, owner_id, status, override, summary, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.JobID, job.OwnerID, job.Status, job.Override, summary, job.CreatedAt, job.CompletedAt,
	)
	return err
}

// GetImportJob retrieves a job by its id
func (d Datasource) GetImportJob(ctx context.Context, ownerID, jobID string) (*model.ImportJob, error) {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Fetching import job from db")
	defer span.End()

	job := &model.ImportJob{}
	var summary []byte
	var completedAt sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, job_id, owner_id, status, override, summary, created_at, completed_at
		FROM import_jobs
		WHERE owner_id = $1 AND job_id = $2
	`, ownerID, jobID).Scan(
		&job.ID, &job.JobID, &job.OwnerID, &job.Status, &job.Override,
		&summary, &job.CreatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("import job %s not found", jobID), err)
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &job.Summary); err != nil {
			return nil, err
		}
	}
	return job, nil
}

// UpdateImportJobStatus advances a job's state and stores its summary
func (d Datasource) UpdateImportJobStatus(ctx context.Context, jobID string, status model.JobStatus, summary model.CommitSummary, completedAt *time.Time) error {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Updating import job status")
	defer span.End()

	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = d.Conn.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = $2, summary = $3, completed_at = $4
		WHERE job_id = $1
	`, jobID, status, payload, completedAt)
	return err
}

// RecordPendingPairs stores session-scoped candidate pairs awaiting a decision.
// Entries round-trip through JSONB so pending pairs survive process restarts.
func (d Datasource) RecordPendingPairs(ctx context.Context, pairs []*model.MatchCandidatePair) error {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Saving pending pairs to db")
	defer span.End()

	for _, pair := range pairs {
		outEntry, err := json.Marshal(pair.Out)
		if err != nil {
			return err
		}
		var inEntry []byte
		if pair.In != nil {
			inEntry, err = json.Marshal(pair.In)
			if err != nil {
				return err
			}
		}
		reasons, err := json.Marshal(pair.Reasons)
		if err != nil {
			return err
		}
		_, err = d.Conn.ExecContext(ctx,
			`INSERT INTO pending_pairs(
				pair_id, job_id, kind, out_entry, in_entry,
				existing_transaction_id, score, classification, reasons
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			pair.PairID, pair.JobID, pair.Kind, outEntry, nullableBytes(inEntry),
			nullableString(pair.ExistingTransactionID), pair.Score, pair.Classification, reasons,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// GetPendingPairs retrieves all candidate pairs for a job, in insertion order
func (d Datasource) GetPendingPairs(ctx context.Context, jobID string) ([]*model.MatchCandidatePair, error) {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Fetching pending pairs from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT pair_id, job_id, kind, out_entry, in_entry,
			existing_transaction_id, score, classification, reasons, decision, decided_at
		FROM pending_pairs
		WHERE job_id = $1
		ORDER BY id
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []*model.MatchCandidatePair
	for rows.Next() {
		pair := &model.MatchCandidatePair{}
		var outEntry, reasons []byte
		var inEntry []byte
		var existingID, decision sql.NullString
		var decidedAt sql.NullTime
		err = rows.Scan(
			&pair.PairID, &pair.JobID, &pair.Kind, &outEntry, &inEntry,
			&existingID, &pair.Score, &pair.Classification, &reasons, &decision, &decidedAt,
		)
		if err != nil {
			return nil, err
		}
		pair.Out = &model.LedgerEntry{}
		if err := json.Unmarshal(outEntry, pair.Out); err != nil {
			return nil, err
		}
		if len(inEntry) > 0 {
			pair.In = &model.LedgerEntry{}
			if err := json.Unmarshal(inEntry, pair.In); err != nil {
				return nil, err
			}
		}
		if err := json.Unmarshal(reasons, &pair.Reasons); err != nil {
			return nil, err
		}
		if existingID.Valid {
			pair.ExistingTransactionID = existingID.String
		}
		if decision.Valid {
			pair.Decision = &model.ReconciliationDecision{
				PairID: pair.PairID,
				Action: model.DecisionAction(decision.String),
			}
			if decidedAt.Valid {
				pair.Decision.DecidedAt = decidedAt.Time
			}
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// RecordDecision stores a link/separate verdict for one pending pair
func (d Datasource) RecordDecision(ctx context.Context, jobID, pairID string, action model.DecisionAction, decidedAt time.Time) error {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Recording pair decision")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE pending_pairs
		SET decision = $3, decided_at = $4
		WHERE job_id = $1 AND pair_id = $2
	`, jobID, pairID, action, decidedAt)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("pair %s not found in job %s", pairID, jobID), nil)
	}
	return nil
}

// CountUndecidedPairs returns the number of pairs without a decision
func (d Datasource) CountUndecidedPairs(ctx context.Context, jobID string) (int, error) {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Counting undecided pairs")
	defer span.End()

	var count int
	err := d.Conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_pairs WHERE job_id = $1 AND decision IS NULL`,
		jobID,
	).Scan(&count)
	return count, err
}

// DeletePendingPairs discards all session pairs for a job
func (d Datasource) DeletePendingPairs(ctx context.Context, jobID string) error {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Deleting pending pairs")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `DELETE FROM pending_pairs WHERE job_id = $1`, jobID)
	return err
}

// RecordStagedTransactions holds a job's unambiguous commit candidates while
// the job waits for pair decisions. Nothing touches the transaction store
// until the job leaves AWAITING_DECISIONS, so cancelling discards these with
// no persisted effects.
func (d Datasource) RecordStagedTransactions(ctx context.Context, jobID string, txns []*model.Transaction) error {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Staging commit candidates")
	defer span.End()

	for _, txn := range txns {
		payload, err := json.Marshal(txn)
		if err != nil {
			return err
		}
		_, err = d.Conn.ExecContext(ctx,
			`INSERT INTO staged_transactions(job_id, payload) VALUES ($1, $2)`,
			jobID, payload,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetStagedTransactions retrieves a job's staged commit candidates in
// insertion order
func (d Datasource) GetStagedTransactions(ctx context.Context, jobID string) ([]*model.Transaction, error) {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Fetching staged commit candidates")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT payload FROM staged_transactions WHERE job_id = $1 ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*model.Transaction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		txn := &model.Transaction{}
		if err := json.Unmarshal(payload, txn); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// DeleteStagedTransactions discards a job's staged commit candidates
func (d Datasource) DeleteStagedTransactions(ctx context.Context, jobID string) error {
	ctx, span := otel.Tracer("ImportJob").Start(ctx, "Deleting staged commit candidates")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `DELETE FROM staged_transactions WHERE job_id = $1`, jobID)
	return err
}
