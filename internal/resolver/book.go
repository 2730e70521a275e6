package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/client"
	"github.com/acstiles/media-preloader/internal/preload"
)

const coverURLFormat = "https://covers.openlibrary.org/b/isbn/%s-L.jpg"

// Book resolves ISBN references against the Open Library edition API.
type Book struct {
	api    *client.Client
	logger *zap.Logger
}

// NewBook constructs a Book resolver.
func NewBook(api *client.Client, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{api: api, logger: logger}
}

type openLibraryEdition struct {
	Title         string `json:"title"`
	NumberOfPages int    `json:"number_of_pages"`
	PublishDate   string `json:"publish_date"`
	Subjects      []string `json:"subjects"`
	Authors       []struct {
		Key string `json:"key"`
	} `json:"authors"`
}

type openLibraryAuthor struct {
	Name string `json:"name"`
}

// Resolve looks up the edition by ISBN, then the first author record.
// A missing edition returns (nil, nil); a failed author lookup only
// degrades the contributor field.
func (b *Book) Resolve(ctx context.Context, ref preload.Reference) (*preload.DetailRecord, error) {
	isbn, err := ParseISBN(ref.Value)
	if err != nil {
		return nil, err
	}

	var edition openLibraryEdition
	found, err := b.api.GetJSON(ctx, "/isbn/"+isbn+".json", &edition)
	if err != nil {
		return nil, fmt.Errorf("lookup isbn %s: %w", isbn, err)
	}
	if !found {
		return nil, nil
	}

	rec := &preload.DetailRecord{
		Title:    edition.Title,
		Year:     yearFrom(edition.PublishDate),
		Genres:   normalizeGenres(edition.Subjects),
		ImageURL: fmt.Sprintf(coverURLFormat, isbn),
		Pages:    edition.NumberOfPages,
	}

	if len(edition.Authors) > 0 && edition.Authors[0].Key != "" {
		var author openLibraryAuthor
		found, err := b.api.GetJSON(ctx, edition.Authors[0].Key+".json", &author)
		if err != nil {
			b.logger.Debug("author lookup failed",
				zap.String("isbn", isbn),
				zap.String("author_key", edition.Authors[0].Key),
				zap.Error(err),
			)
		} else if found {
			rec.Contributor = author.Name
		}
	}

	return rec, nil
}

// normalizeGenres caps subject lists at a handful of entries and
// guarantees a non-nil slice.
func normalizeGenres(subjects []string) []string {
	if len(subjects) == 0 {
		return []string{}
	}
	if len(subjects) > 5 {
		subjects = subjects[:5]
	}
	return append([]string(nil), subjects...)
}
