package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/payintel/payintel/config"
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
	err = createBankAccountTable(db)
	if err != nil {
		return nil, err
	}
	err = createExtractedTransactionTable(db)
	if err != nil {
		return nil, err
	}
	err = createPayinTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func createBankAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bank_accounts (
			id SERIAL PRIMARY KEY,
			bank_account_id TEXT NOT NULL UNIQUE,
			merchant_id TEXT NOT NULL,
			nickname TEXT,
			bank_type TEXT NOT NULL,
			username TEXT NOT NULL,
			username2 TEXT,
			password TEXT NOT NULL,
			login_type TEXT NOT NULL DEFAULT 'personal',
			portal_url TEXT,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func createExtractedTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS extracted_transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			bank_account_id TEXT NOT NULL REFERENCES bank_accounts(bank_account_id),
			merchant_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			utr TEXT NOT NULL,
			is_used BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (merchant_id, utr)
		)
	`)
	return err
}

func createPayinTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payins (
			id SERIAL PRIMARY KEY,
			payin_id TEXT NOT NULL UNIQUE,
			merchant_id TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			confirmed_amount BIGINT,
			utr TEXT NOT NULL DEFAULT '-',
			user_submitted_utr TEXT NOT NULL DEFAULT '-',
			status TEXT NOT NULL DEFAULT 'initiated',
			assigned_at TIMESTAMP,
			duration_ms BIGINT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_payins_merchant_status ON payins (merchant_id, status)`)
	return err
}
