package repository

// Schema definitions for the fraud detection database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    merchant_id TEXT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    payment_method TEXT NOT NULL,
    card_type TEXT,
    timestamp TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    features TEXT,
    metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_merchant ON transactions(merchant_id);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
`

const schemaPredictions = `
CREATE TABLE IF NOT EXISTS predictions (
    id TEXT PRIMARY KEY,
    tx_id TEXT NOT NULL,
    fraud_probability REAL NOT NULL,
    confidence REAL NOT NULL,
    risk_level TEXT NOT NULL,
    decision TEXT NOT NULL,
    strategy TEXT NOT NULL,
    model_results TEXT NOT NULL,
    explanation TEXT,
    computed_at TIMESTAMP NOT NULL,
    processing_ms REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_tx ON predictions(tx_id, computed_at);
CREATE INDEX IF NOT EXISTS idx_predictions_decision ON predictions(decision);
CREATE INDEX IF NOT EXISTS idx_predictions_computed ON predictions(computed_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
		schemaPredictions,
	}
}
