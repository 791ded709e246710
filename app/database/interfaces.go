package database

type ArticleRepository interface {
	HasBeenSent(hash string) (bool, error)
	HasTitleBeenSent(title string) (bool, error)

	RecordSent(rec SentRecord) error
	RecordFailure(hash string, errorMessage string) error

	GetFailure(hash string) (*FailureRecord, error)
	GetStats() (Stats, error)
}
