package session

// Repo stores session records by session id.
type Repo interface {
	Upsert(sessionID string, record Record) error
	Get(sessionID string) (Record, error)
	Delete(sessionID string) error
}
