package repositories

import (
	"context"
	"io"

	"github.com/hirewise/server/domain/entities"
)

// TextExtractor pulls plain text out of an uploaded document
type TextExtractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) (*entities.ExtractedDocument, error)
}
