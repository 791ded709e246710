package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses raw RSS/Atom bytes into candidate articles. Entries without a
// parseable publication date are dropped here; every other policy decision
// (same-day filter, dedup) belongs to the Fetcher.
func (p *Parser) Run(data []byte) ([]Article, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	articles := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.PublishedParsed == nil {
			continue
		}
		articles = append(articles, p.normalizeItem(item))
	}

	return articles, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Article {
	guid := cmp.Or(item.GUID, item.Link)

	article := Article{
		Title:       item.Title,
		Description: item.Description,
		Link:        item.Link,
		PublishedAt: *item.PublishedParsed,
		GUID:        guid,
		Hash:        HashGUID(guid),
	}

	// Extract the first enclosure as the lead image candidate (RSS 2.0 spec
	// allows only one per item)
	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		article.ImageURL = item.Enclosures[0].URL
	}

	return article
}

// HashGUID derives the deduplication key for an article identifier.
func HashGUID(guid string) string {
	hash := sha256.Sum256([]byte(guid))
	return hex.EncodeToString(hash[:])
}
