package db

// sqliteSchema is applied by Migrate. Timestamps are TEXT in timeLayout so
// that lexical order matches time order and the driver never reinterprets them.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	full_name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'operator' CHECK (role IN ('owner', 'operator', 'farmer')),
	phone TEXT UNIQUE,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tractors (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
	manufacturer_name TEXT NOT NULL,
	model TEXT NOT NULL,
	registration_number TEXT NOT NULL UNIQUE,
	specifications TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS implements (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
	operation_type TEXT NOT NULL,
	name TEXT NOT NULL,
	brand_name TEXT NOT NULL,
	specifications TEXT,
	working_width REAL NOT NULL CHECK (working_width > 0),
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	UNIQUE (owner_id, name)
);

CREATE TABLE IF NOT EXISTS operations (
	id TEXT PRIMARY KEY,
	tractor_id TEXT NOT NULL REFERENCES tractors(id) ON DELETE RESTRICT,
	implement_id TEXT NOT NULL REFERENCES implements(id) ON DELETE RESTRICT,
	operator_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
	operation_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'cancelled')),
	start_time TEXT NOT NULL,
	end_time TEXT,
	notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_operations_one_active
	ON operations (tractor_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_operations_start_time ON operations (start_time);

CREATE TABLE IF NOT EXISTS telemetry (
	id TEXT PRIMARY KEY,
	operation_id TEXT NOT NULL REFERENCES operations(id) ON DELETE RESTRICT,
	tractor_id TEXT NOT NULL REFERENCES tractors(id) ON DELETE RESTRICT,
	timestamp TEXT NOT NULL,
	engine_on INTEGER NOT NULL,
	latitude REAL,
	longitude REAL,
	is_moving INTEGER NOT NULL DEFAULT 0,
	pto_on INTEGER NOT NULL DEFAULT 0,
	speed REAL NOT NULL DEFAULT 0,
	implement_data TEXT,
	UNIQUE (operation_id, tractor_id, timestamp)
);

CREATE TABLE IF NOT EXISTS fuel_logs (
	id TEXT PRIMARY KEY,
	tractor_id TEXT NOT NULL REFERENCES tractors(id) ON DELETE RESTRICT,
	operator_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
	operation_id TEXT REFERENCES operations(id) ON DELETE RESTRICT,
	timestamp TEXT NOT NULL,
	quantity REAL NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	UNIQUE (tractor_id, timestamp)
);

CREATE INDEX IF NOT EXISTS idx_fuel_logs_timestamp ON fuel_logs (timestamp);

CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	tractor_id TEXT NOT NULL REFERENCES tractors(id) ON DELETE RESTRICT,
	operation_id TEXT REFERENCES operations(id) ON DELETE RESTRICT,
	timestamp TEXT NOT NULL,
	alert_type TEXT NOT NULL,
	message TEXT NOT NULL,
	is_resolved INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_natural_key
	ON alerts (tractor_id, COALESCE(operation_id, ''), alert_type, timestamp);
CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts (timestamp);
`
