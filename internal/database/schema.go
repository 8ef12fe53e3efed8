package database

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    userId TEXT PRIMARY KEY,
    tokens INTEGER DEFAULT 0,
    xp INTEGER DEFAULT 0,
    lastDaily INTEGER DEFAULT NULL,
    level INTEGER DEFAULT 1
)`,
	`CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    userId TEXT,
    amount INTEGER,
    type TEXT,
    timestamp TEXT DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (userId) REFERENCES users (userId)
)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    userId VARCHAR(64) PRIMARY KEY,
    tokens BIGINT DEFAULT 0,
    xp BIGINT DEFAULT 0,
    lastDaily BIGINT DEFAULT NULL,
    level INT DEFAULT 1
)`,
	`CREATE TABLE IF NOT EXISTS transactions (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    userId VARCHAR(64),
    amount BIGINT,
    type VARCHAR(64),
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (userId) REFERENCES users(userId)
)`,
}
