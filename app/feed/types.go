package feed

import (
	"time"
)

// Feed processing types

// Article is a single feed entry that survived filtering and deduplication.
// Immutable once produced by the Fetcher; the delivery worker consumes it.
type Article struct {
	Title       string
	Description string
	Link        string
	PublishedAt time.Time
	ImageURL    string // first enclosure URL, if any
	GUID        string
	Hash        string // hex sha256 of GUID, primary dedup key
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled        bool `yaml:"enabled"`
	MaxArticles    int  `yaml:"max_articles"` // per-cycle cap
	Timeout        int  `yaml:"timeout"`      // seconds
	ExtractContent bool `yaml:"extract_content"`
}
