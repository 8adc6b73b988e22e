package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/withondo/ondo/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createAccountTable(db)
	if err != nil {
		return nil, err
	}
	err = createTransactionTable(db)
	if err != nil {
		return nil, err
	}
	err = createStatementTable(db)
	if err != nil {
		return nil, err
	}
	err = createImportJobTable(db)
	if err != nil {
		return nil, err
	}
	err = createPendingPairTable(db)
	if err != nil {
		return nil, err
	}
	err = createStagedTransactionTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createAccountTable creates a PostgreSQL table for the Account struct
func createAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			currency TEXT,
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (owner_id, name)
		)
	`)
	return err
}

// createTransactionTable creates a PostgreSQL table for the Transaction struct.
// The (owner_id, external_id) unique index is what turns a concurrent-commit
// collision into a duplicate report instead of a double insert.
func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			booked_at TIMESTAMP NOT NULL,
			kind TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			account_id TEXT NOT NULL REFERENCES accounts(account_id),
			counter_account_id TEXT,
			category_id TEXT,
			external_id TEXT,
			group_id TEXT,
			statement_id TEXT,
			memo TEXT,
			is_auto_transfer_match BOOLEAN NOT NULL DEFAULT FALSE,
			exclude_from_reports BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (owner_id, external_id)
		)
	`)
	return err
}

// createStatementTable creates a PostgreSQL table for billing-cycle statements
func createStatementTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS statements (
			id SERIAL PRIMARY KEY,
			statement_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			due_date TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createImportJobTable creates a PostgreSQL table for upload jobs
func createImportJobTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS import_jobs (
			id SERIAL PRIMARY KEY,
			job_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			status TEXT NOT NULL,
			override BOOLEAN NOT NULL DEFAULT FALSE,
			summary JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP
		)
	`)
	return err
}

// createStagedTransactionTable creates a PostgreSQL table for commit
// candidates held back while their job awaits pair decisions
func createStagedTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS staged_transactions (
			id SERIAL PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES import_jobs(job_id),
			payload JSONB NOT NULL
		)
	`)
	return err
}

// createPendingPairTable creates a PostgreSQL table for session-scoped
// candidate pairs awaiting a decision
func createPendingPairTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pending_pairs (
			id SERIAL PRIMARY KEY,
			pair_id TEXT NOT NULL UNIQUE,
			job_id TEXT NOT NULL REFERENCES import_jobs(job_id),
			kind TEXT NOT NULL,
			out_entry JSONB NOT NULL,
			in_entry JSONB,
			existing_transaction_id TEXT,
			score INT NOT NULL,
			classification TEXT NOT NULL,
			reasons JSONB NOT NULL DEFAULT '[]',
			decision TEXT,
			decided_at TIMESTAMP
		)
	`)
	return err
}
