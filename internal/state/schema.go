package state

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
  name TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  session TEXT NOT NULL,
  role TEXT NOT NULL,
  content TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(session) REFERENCES sessions(name)
);

CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session, created_at);

CREATE TABLE IF NOT EXISTS passages (
  id TEXT PRIMARY KEY,
  content TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`
