package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
)

// DefaultTitle is reported when the document has no title metadata.
const DefaultTitle = "Extracted PDF Text"

// ErrNoText is returned when a PDF has no extractable text layer.
var ErrNoText = errors.New("pdf has no readable text")

// infoKeys are the document information entries copied into the result.
var infoKeys = []string{"Title", "Author", "Subject", "Creator", "Producer"}

// Extractor implements repositories.TextExtractor for PDF documents.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (doc *entities.ExtractedDocument, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("failed to parse pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	pages := reader.NumPage()
	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Debug("Failed to read pdf page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}

	if len(texts) == 0 {
		return nil, ErrNoText
	}

	info := readInfo(reader)
	e.logger.Info("Extracted pdf text",
		zap.Int("pages", pages),
		zap.String("title", info["Title"]))

	return &entities.ExtractedDocument{
		Text:  strings.Join(texts, "\n\n"),
		Pages: pages,
		Info:  info,
	}, nil
}

func readInfo(reader *pdf.Reader) map[string]string {
	info := make(map[string]string)
	dict := reader.Trailer().Key("Info")
	for _, key := range infoKeys {
		if v := strings.TrimSpace(dict.Key(key).Text()); v != "" {
			info[key] = v
		}
	}
	if info["Title"] == "" {
		info["Title"] = DefaultTitle
	}
	return info
}
