package database

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel"
)

// IsStatementPaid reports whether a billing-cycle statement is marked paid.
// A missing statement is treated as unpaid; the settlement check also
// consults HasSettlementForStatement for linkage.
func (d Datasource) IsStatementPaid(ctx context.Context, ownerID, statementID string) (bool, error) {
	ctx, span := otel.Tracer("Statement").Start(ctx, "Checking statement status")
	defer span.End()

	var status string
	err := d.Conn.QueryRowContext(ctx,
		`SELECT status FROM statements WHERE owner_id = $1 AND statement_id = $2`,
		ownerID, statementID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == "paid", nil
}
